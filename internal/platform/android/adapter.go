package android

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/logger"
	"github.com/oshokin/alarmee/internal/platform"
	"github.com/oshokin/alarmee/internal/service/schedule"
)

// reasonExactDenied is reported to the degrade handler.
const reasonExactDenied = "exact alarm permission not granted"

var (
	// ErrMalformedExtras is returned when a broadcast lacks the serialized trigger.
	ErrMalformedExtras = errors.New("malformed alarm extras")
	// errHostRequired is returned when a binding is missing.
	errHostRequired = errors.New("android host bindings are required")
)

// Adapter implements platform.Adapter on top of AlarmManager.
type Adapter struct {
	alarms        AlarmManager
	notifications NotificationManager

	now       func() time.Time
	onDegrade platform.DegradeHandler
	onAction  platform.ActionHandler
	onFire    platform.FireHandler

	// mu protects armed.
	mu sync.Mutex
	// armed tracks ids scheduled by this process; AlarmManager cannot enumerate.
	armed map[string]Mode
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the clock used to compute re-arm times.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithDegradeHandler observes exact-to-inexact fallbacks.
func WithDegradeHandler(h platform.DegradeHandler) Option {
	return func(a *Adapter) {
		a.onDegrade = h
	}
}

// WithActionHandler observes notification action broadcasts.
func WithActionHandler(h platform.ActionHandler) Option {
	return func(a *Adapter) {
		a.onAction = h
	}
}

// WithFireHandler observes alarms after their notification was posted.
func WithFireHandler(h platform.FireHandler) Option {
	return func(a *Adapter) {
		a.onFire = h
	}
}

// New creates the Android adapter.
func New(alarms AlarmManager, notifications NotificationManager, opts ...Option) (*Adapter, error) {
	if alarms == nil || notifications == nil {
		return nil, errHostRequired
	}

	a := &Adapter{
		alarms:        alarms,
		notifications: notifications,
		now:           time.Now,
		armed:         make(map[string]Mode),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Name implements platform.Adapter.
func (a *Adapter) Name() string {
	return platform.NameAndroid
}

// Schedule arms the first occurrence of trigger.
func (a *Adapter) Schedule(ctx context.Context, trigger *domain.Trigger, notification *domain.Notification) error {
	extras, err := encodeExtras(trigger, notification)
	if err != nil {
		return err
	}

	var mode Mode

	switch trigger.Kind {
	case domain.TriggerInterval:
		mode = ModeRepeating
		err = a.alarms.SetRepeating(trigger.ID, trigger.At, trigger.Every, extras)
	case domain.TriggerAbsolute, domain.TriggerCalendar:
		mode, err = a.setOneShot(ctx, trigger, extras)
	default:
		return fmt.Errorf("unsupported trigger kind %q", trigger.Kind)
	}

	if err != nil {
		return fmt.Errorf("arm alarm %s: %w", trigger.ID, err)
	}

	a.mu.Lock()
	a.armed[trigger.ID] = mode
	a.mu.Unlock()

	logger.DebugKV(ctx, "Android alarm armed", "alarm_id", trigger.ID, "mode", mode, "at", trigger.At)

	return nil
}

// setOneShot picks the exact call only when requested and permitted.
func (a *Adapter) setOneShot(ctx context.Context, trigger *domain.Trigger, extras Extras) (Mode, error) {
	if trigger.Exact && a.alarms.CanScheduleExactAlarms() {
		return ModeExact, a.alarms.SetExactAndAllowWhileIdle(trigger.ID, trigger.At, extras)
	}

	if trigger.Exact {
		logger.WarnKV(ctx, "Exact alarm permission not granted, using inexact alarm", "alarm_id", trigger.ID)

		if a.onDegrade != nil {
			a.onDegrade(ctx, trigger.ID, reasonExactDenied)
		}
	}

	return ModeInexact, a.alarms.SetAndAllowWhileIdle(trigger.ID, trigger.At, extras)
}

// Cancel cancels id. Ids that were never armed are passed through; the OS ignores them.
func (a *Adapter) Cancel(_ context.Context, id string) error {
	if err := a.alarms.Cancel(id); err != nil {
		return fmt.Errorf("cancel alarm %s: %w", id, err)
	}

	a.mu.Lock()
	delete(a.armed, id)
	a.mu.Unlock()

	return nil
}

// CancelAll cancels every alarm armed by this process.
// Alarms armed before a process restart must be cancelled by id.
func (a *Adapter) CancelAll(ctx context.Context) error {
	var errs []error

	for _, id := range a.Armed() {
		if err := a.Cancel(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Armed returns the ids currently armed by this process.
func (a *Adapter) Armed() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, 0, len(a.armed))
	for id := range a.armed {
		ids = append(ids, id)
	}

	return ids
}

// ModeOf returns the mode id was armed with.
func (a *Adapter) ModeOf(id string) (Mode, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	mode, ok := a.armed[id]

	return mode, ok
}

// HandleBroadcast is called by the host BroadcastReceiver when an alarm fires.
// It posts the notification and re-arms calendar repeats at their next occurrence.
func (a *Adapter) HandleBroadcast(ctx context.Context, extras Extras) error {
	trigger, notification, err := decodeExtras(extras)
	if err != nil {
		return err
	}

	ctx = logger.WithKV(ctx, "alarm_id", trigger.ID)

	if err := a.notifications.Notify(notification); err != nil {
		return fmt.Errorf("post notification: %w", err)
	}

	if a.onFire != nil {
		a.onFire(ctx, trigger, notification)
	}

	switch trigger.Kind {
	case domain.TriggerAbsolute:
		a.mu.Lock()
		delete(a.armed, trigger.ID)
		a.mu.Unlock()

		return nil
	case domain.TriggerInterval:
		// The OS repeats interval alarms itself.
		return nil
	case domain.TriggerCalendar:
	}

	next := schedule.Next(trigger, a.now())
	if next.IsZero() {
		return nil
	}

	rearmed := *trigger
	rearmed.At = next

	logger.DebugKV(ctx, "Re-arming calendar alarm", "next", next)

	return a.Schedule(ctx, &rearmed, notification)
}

// HandleAction is called by the host when a notification action broadcast arrives.
func (a *Adapter) HandleAction(ctx context.Context, extras Extras) error {
	alarmID, actionID := extras[ExtraAlarmID], extras[ExtraActionID]
	if alarmID == "" || actionID == "" {
		return fmt.Errorf("%w: action broadcast without ids", ErrMalformedExtras)
	}

	if a.onAction != nil {
		a.onAction(ctx, alarmID, actionID)
	}

	return nil
}

// encodeExtras serializes the trigger and notification into intent extras.
func encodeExtras(trigger *domain.Trigger, notification *domain.Notification) (Extras, error) {
	triggerJSON, err := json.Marshal(trigger)
	if err != nil {
		return nil, fmt.Errorf("encode trigger: %w", err)
	}

	notificationJSON, err := json.Marshal(notification)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}

	return Extras{
		ExtraAlarmID:      trigger.ID,
		ExtraTrigger:      string(triggerJSON),
		ExtraNotification: string(notificationJSON),
	}, nil
}

// decodeExtras restores what encodeExtras wrote.
func decodeExtras(extras Extras) (*domain.Trigger, *domain.Notification, error) {
	rawTrigger, ok := extras[ExtraTrigger]
	if !ok {
		return nil, nil, fmt.Errorf("%w: missing %s", ErrMalformedExtras, ExtraTrigger)
	}

	var trigger domain.Trigger
	if err := json.Unmarshal([]byte(rawTrigger), &trigger); err != nil {
		return nil, nil, fmt.Errorf("%w: decode trigger: %w", ErrMalformedExtras, err)
	}

	notification := &domain.Notification{ID: trigger.ID}

	if rawNotification, ok := extras[ExtraNotification]; ok {
		if err := json.Unmarshal([]byte(rawNotification), notification); err != nil {
			return nil, nil, fmt.Errorf("%w: decode notification: %w", ErrMalformedExtras, err)
		}
	}

	return &trigger, notification, nil
}
