// Package ios maps triggers onto UNUserNotificationCenter requests.
//
// The host application binds NotificationCenter to the real notification
// center. Calendar repeats become repeating UNCalendarNotificationTrigger
// objects so the OS calendar handles DST and month lengths; one-shot alarms
// use a non-repeating calendar trigger with full date components; custom
// durations use UNTimeIntervalNotificationTrigger.
//
// If the user denies notification permission, scheduling is a logged no-op.
package ios

import (
	"context"
	"math"
	"time"
)

// Undefined marks an unset date component, like NSDateComponentUndefined.
const Undefined = math.MaxInt

// AuthorizationOption mirrors UNAuthorizationOptions.
type AuthorizationOption string

const (
	AuthorizationAlert AuthorizationOption = "alert"
	AuthorizationSound AuthorizationOption = "sound"
	AuthorizationBadge AuthorizationOption = "badge"
)

// DateComponents mirrors NSDateComponents. Weekday uses Apple numbering (Sunday is 1).
type DateComponents struct {
	Year     int
	Month    int
	Day      int
	Weekday  int
	Hour     int
	Minute   int
	Second   int
	TimeZone string
}

// Trigger is either a *CalendarTrigger or a *TimeIntervalTrigger.
type Trigger interface {
	Repeating() bool
}

// CalendarTrigger mirrors UNCalendarNotificationTrigger.
type CalendarTrigger struct {
	Components DateComponents
	Repeats    bool
}

// Repeating implements Trigger.
func (t *CalendarTrigger) Repeating() bool { return t.Repeats }

// TimeIntervalTrigger mirrors UNTimeIntervalNotificationTrigger.
type TimeIntervalTrigger struct {
	Interval time.Duration
	Repeats  bool
}

// Repeating implements Trigger.
func (t *TimeIntervalTrigger) Repeating() bool { return t.Repeats }

// Attachment mirrors UNNotificationAttachment with the bytes the host writes to disk.
type Attachment struct {
	Identifier string
	Data       []byte
}

// Content mirrors UNMutableNotificationContent.
type Content struct {
	Title              string
	Body               string
	Sound              string
	CategoryIdentifier string
	UserInfo           map[string]string
	Attachments        []Attachment
}

// Request mirrors UNNotificationRequest.
type Request struct {
	Identifier string
	Content    Content
	Trigger    Trigger
}

// CategoryAction mirrors UNNotificationAction.
type CategoryAction struct {
	Identifier string
	Title      string
}

// Category mirrors UNNotificationCategory.
type Category struct {
	Identifier string
	Actions    []CategoryAction
}

// Response mirrors UNNotificationResponse delivered to the center delegate.
type Response struct {
	RequestIdentifier string
	ActionIdentifier  string
	UserInfo          map[string]string
}

// NotificationCenter is the host binding to UNUserNotificationCenter.current().
type NotificationCenter interface {
	RequestAuthorization(ctx context.Context, options ...AuthorizationOption) (bool, error)
	SetCategory(category Category)
	Add(ctx context.Context, request *Request) error
	RemovePendingRequests(identifiers ...string)
	RemoveAllPendingRequests()
}
