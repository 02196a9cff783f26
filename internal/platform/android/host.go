package android

import (
	"time"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

// Keys of the broadcast intent extras.
const (
	ExtraAlarmID      = "alarmee.alarm_id"
	ExtraTrigger      = "alarmee.trigger"
	ExtraNotification = "alarmee.notification"
	ExtraActionID     = "alarmee.action_id"
)

// Extras is the serialized payload carried by the broadcast intent.
type Extras map[string]string

// AlarmManager is the host binding to android.app.AlarmManager.
type AlarmManager interface {
	// CanScheduleExactAlarms mirrors AlarmManager.canScheduleExactAlarms.
	CanScheduleExactAlarms() bool
	// SetExactAndAllowWhileIdle arms an RTC_WAKEUP exact alarm.
	SetExactAndAllowWhileIdle(id string, at time.Time, extras Extras) error
	// SetAndAllowWhileIdle arms an RTC_WAKEUP inexact alarm.
	SetAndAllowWhileIdle(id string, at time.Time, extras Extras) error
	// SetRepeating arms an alarm repeating every interval from at.
	SetRepeating(id string, at time.Time, interval time.Duration, extras Extras) error
	// Cancel cancels the pending intent for id; unknown ids are ignored by the OS.
	Cancel(id string) error
}

// NotificationManager is the host binding to NotificationManagerCompat.
type NotificationManager interface {
	Notify(notification *domain.Notification) error
}

// Mode is the AlarmManager call used for a one-shot wake-up.
type Mode string

const (
	// ModeExact is setExactAndAllowWhileIdle.
	ModeExact Mode = "exact"
	// ModeInexact is setAndAllowWhileIdle.
	ModeInexact Mode = "inexact"
	// ModeRepeating is setRepeating.
	ModeRepeating Mode = "repeating"
)
