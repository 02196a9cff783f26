package ios

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/logger"
	"github.com/oshokin/alarmee/internal/platform"
)

const (
	// DefaultActionIdentifier mirrors UNNotificationDefaultActionIdentifier.
	DefaultActionIdentifier = "com.apple.UNNotificationDefaultActionIdentifier"
	// DismissActionIdentifier mirrors UNNotificationDismissActionIdentifier.
	DismissActionIdentifier = "com.apple.UNNotificationDismissActionIdentifier"

	// minRepeatingInterval is the OS lower bound for repeating time-interval triggers.
	minRepeatingInterval = time.Minute
	// categoryPrefix namespaces per-alarm categories.
	categoryPrefix = "alarmee."
	// imageAttachmentID names the image attachment.
	imageAttachmentID = "image"
	// userInfoAlarmID carries the alarm id in UserInfo.
	userInfoAlarmID = "alarmee.alarm_id"

	// reasonAuthorizationDenied is reported to the degrade handler.
	reasonAuthorizationDenied = "notification authorization denied"
)

var (
	// errCenterRequired is returned when the host binding is missing.
	errCenterRequired = errors.New("notification center binding is required")
	// errIntervalTooShort is returned for repeating intervals under a minute.
	errIntervalTooShort = errors.New("repeating interval must be at least one minute")
)

// Adapter implements platform.Adapter on top of UNUserNotificationCenter.
type Adapter struct {
	center    NotificationCenter
	now       func() time.Time
	onAction  platform.ActionHandler
	onDegrade platform.DegradeHandler
	options   []AuthorizationOption
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithActionHandler observes delegate responses.
func WithActionHandler(h platform.ActionHandler) Option {
	return func(a *Adapter) {
		a.onAction = h
	}
}

// WithDegradeHandler observes alarms dropped because authorization was denied.
func WithDegradeHandler(h platform.DegradeHandler) Option {
	return func(a *Adapter) {
		a.onDegrade = h
	}
}

// New creates the iOS adapter.
func New(center NotificationCenter, opts ...Option) (*Adapter, error) {
	if center == nil {
		return nil, errCenterRequired
	}

	a := &Adapter{
		center:  center,
		now:     time.Now,
		options: []AuthorizationOption{AuthorizationAlert, AuthorizationSound, AuthorizationBadge},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Name implements platform.Adapter.
func (a *Adapter) Name() string {
	return platform.NameIOS
}

// Schedule requests permission and adds a notification request for trigger.
// A denied permission is logged and reported as success.
func (a *Adapter) Schedule(ctx context.Context, trigger *domain.Trigger, notification *domain.Notification) error {
	granted, err := a.center.RequestAuthorization(ctx, a.options...)
	if err != nil {
		logger.WarnKV(ctx, "Notification authorization failed, alarm not scheduled",
			"alarm_id", trigger.ID, "error", err)

		return nil
	}

	if !granted {
		logger.WarnKV(ctx, "Notification permission denied, alarm not scheduled", "alarm_id", trigger.ID)

		if a.onDegrade != nil {
			a.onDegrade(ctx, trigger.ID, reasonAuthorizationDenied)
		}

		return nil
	}

	osTrigger, err := a.buildTrigger(ctx, trigger)
	if err != nil {
		return err
	}

	content := buildContent(trigger.ID, notification)

	if len(notification.Actions) > 0 {
		category := Category{Identifier: content.CategoryIdentifier}
		for _, action := range notification.Actions {
			category.Actions = append(category.Actions, CategoryAction{Identifier: action.ID, Title: action.Label})
		}

		a.center.SetCategory(category)
	}

	request := &Request{
		Identifier: trigger.ID,
		Content:    content,
		Trigger:    osTrigger,
	}

	if err := a.center.Add(ctx, request); err != nil {
		return fmt.Errorf("add notification request %s: %w", trigger.ID, err)
	}

	logger.DebugKV(ctx, "iOS notification request added", "alarm_id", trigger.ID, "repeats", osTrigger.Repeating())

	return nil
}

// buildTrigger converts a normalized trigger into an OS trigger object.
func (a *Adapter) buildTrigger(ctx context.Context, trigger *domain.Trigger) (Trigger, error) {
	loc := trigger.Location()

	switch trigger.Kind {
	case domain.TriggerAbsolute:
		at := trigger.At.In(loc)

		return &CalendarTrigger{
			Components: DateComponents{
				Year:     at.Year(),
				Month:    int(at.Month()),
				Day:      at.Day(),
				Weekday:  Undefined,
				Hour:     at.Hour(),
				Minute:   at.Minute(),
				Second:   at.Second(),
				TimeZone: loc.String(),
			},
			Repeats: false,
		}, nil
	case domain.TriggerCalendar:
		return &CalendarTrigger{
			Components: componentsFromMatch(trigger.Match, loc),
			Repeats:    true,
		}, nil
	case domain.TriggerInterval:
		if trigger.Every < minRepeatingInterval {
			return nil, errIntervalTooShort
		}

		// Time-interval triggers count from the moment the request is added.
		if lead := trigger.At.Sub(a.now()); lead > trigger.Every+time.Second || lead < trigger.Every-time.Second {
			logger.DebugKV(ctx, "Interval alarm starts counting from now on iOS",
				"alarm_id", trigger.ID, "requested_first_fire", trigger.At, "every", trigger.Every)
		}

		return &TimeIntervalTrigger{Interval: trigger.Every, Repeats: true}, nil
	default:
		return nil, fmt.Errorf("unsupported trigger kind %q", trigger.Kind)
	}
}

// Cancel removes the pending request; unknown ids are ignored by the OS.
func (a *Adapter) Cancel(_ context.Context, id string) error {
	a.center.RemovePendingRequests(id)

	return nil
}

// CancelAll removes every pending request of the application, not only
// the ones created here: the notification center has no per-library scope.
func (a *Adapter) CancelAll(context.Context) error {
	a.center.RemoveAllPendingRequests()

	return nil
}

// HandleResponse is called from the notification center delegate.
// Default and dismiss taps are not reported as actions.
func (a *Adapter) HandleResponse(ctx context.Context, response Response) {
	switch response.ActionIdentifier {
	case "", DefaultActionIdentifier, DismissActionIdentifier:
		return
	}

	alarmID := response.UserInfo[userInfoAlarmID]
	if alarmID == "" {
		alarmID = response.RequestIdentifier
	}

	if a.onAction != nil {
		a.onAction(ctx, alarmID, response.ActionIdentifier)
	}
}

// componentsFromMatch converts calendar fields into date components.
func componentsFromMatch(match domain.CalendarMatch, loc *time.Location) DateComponents {
	c := DateComponents{
		Year:     Undefined,
		Month:    Undefined,
		Day:      Undefined,
		Weekday:  Undefined,
		Hour:     Undefined,
		Minute:   Undefined,
		Second:   Undefined,
		TimeZone: loc.String(),
	}

	if v, ok := match.Get(domain.FieldMonth); ok {
		c.Month = v
	}

	if v, ok := match.Get(domain.FieldDay); ok {
		c.Day = v
	}

	if v, ok := match.Get(domain.FieldWeekday); ok {
		c.Weekday = v + 1
	}

	if v, ok := match.Get(domain.FieldHour); ok {
		c.Hour = v
	}

	if v, ok := match.Get(domain.FieldMinute); ok {
		c.Minute = v
	}

	if v, ok := match.Get(domain.FieldSecond); ok {
		c.Second = v
	}

	return c
}

// buildContent converts the notification into UN content.
func buildContent(id string, n *domain.Notification) Content {
	userInfo := maps.Clone(n.Data)
	if userInfo == nil {
		userInfo = make(map[string]string, 2)
	}

	userInfo[userInfoAlarmID] = id

	if n.DeepLink != "" {
		userInfo["deep_link"] = n.DeepLink
	}

	content := Content{
		Title:    n.Title,
		Body:     n.Body,
		Sound:    n.Sound,
		UserInfo: userInfo,
	}

	if len(n.Actions) > 0 {
		content.CategoryIdentifier = categoryPrefix + id
	}

	if n.HasImage() {
		content.Attachments = []Attachment{{Identifier: imageAttachmentID, Data: n.Image}}
	}

	return content
}
