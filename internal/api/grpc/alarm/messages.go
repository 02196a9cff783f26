package alarm

import (
	"fmt"
	"time"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/eventbus"
)

// Alarm is the wire form of an alarm request.
type Alarm struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	// FireAt is a local date-time such as 2026-03-02T09:00:00.
	FireAt   string `json:"fire_at,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Repeat   string `json:"repeat,omitempty"`
	// Every is a Go duration string used by the custom repeat policy.
	Every   string          `json:"every,omitempty"`
	Actions []domain.Action `json:"actions,omitempty"`
	Options domain.Options  `json:"options"`
	Exact   bool            `json:"exact,omitempty"`
}

// Trigger is the wire form of a normalized trigger.
type Trigger struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	At       time.Time      `json:"at"`
	Every    string         `json:"every,omitempty"`
	Match    map[string]int `json:"match,omitempty"`
	Repeat   string         `json:"repeat"`
	Timezone string         `json:"timezone,omitempty"`
	Exact    bool           `json:"exact,omitempty"`
}

// ScheduledAlarm is one entry of a List response.
type ScheduledAlarm struct {
	Alarm   *Alarm   `json:"alarm"`
	Trigger *Trigger `json:"trigger,omitempty"`
	// Next is omitted once a one-shot alarm has fired.
	Next      *time.Time `json:"next,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ScheduleRequest schedules or replaces an alarm.
type ScheduleRequest struct {
	Alarm *Alarm `json:"alarm"`
}

// ScheduleResponse carries the normalized trigger.
type ScheduleResponse struct {
	Trigger *Trigger `json:"trigger"`
}

// CancelRequest cancels one alarm.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse is empty.
type CancelResponse struct{}

// CancelAllRequest is empty.
type CancelAllRequest struct{}

// CancelAllResponse reports how many persisted alarms were removed.
type CancelAllResponse struct {
	Cancelled int `json:"cancelled"`
}

// ListRequest is empty.
type ListRequest struct{}

// ListResponse lists persisted alarms.
type ListResponse struct {
	Alarms []*ScheduledAlarm `json:"alarms"`
}

// ReportActionRequest reports a notification action tap.
type ReportActionRequest struct {
	AlarmID  string `json:"alarm_id"`
	ActionID string `json:"action_id"`
}

// ReportActionResponse is empty.
type ReportActionResponse struct{}

// ReportPushTokenRequest reports a refreshed push token.
type ReportPushTokenRequest struct {
	Token string `json:"token"`
}

// ReportPushTokenResponse is empty.
type ReportPushTokenResponse struct{}

// WatchRequest filters the event stream; no types means every type.
type WatchRequest struct {
	Types []string `json:"types,omitempty"`
}

// Event is one streamed bus event.
type Event = eventbus.Event

// ToDomainRequest converts the wire form into a domain request.
func ToDomainRequest(alarm *Alarm) (*domain.Request, error) {
	if alarm == nil {
		return nil, fmt.Errorf("%w: alarm is required", domain.ErrInvalidRequest)
	}

	repeat, err := domain.ParseRepeatPolicy(alarm.Repeat)
	if err != nil {
		return nil, err
	}

	req := &domain.Request{
		ID:       alarm.ID,
		Title:    alarm.Title,
		Body:     alarm.Body,
		Timezone: alarm.Timezone,
		Repeat:   repeat,
		Actions:  alarm.Actions,
		Options:  alarm.Options,
		Exact:    alarm.Exact,
	}

	if alarm.FireAt != "" {
		fireAt, parseErr := domain.ParseLocalDateTime(alarm.FireAt)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, parseErr)
		}

		req.FireAt = &fireAt
	}

	if alarm.Every != "" {
		every, parseErr := time.ParseDuration(alarm.Every)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: every: %w", domain.ErrInvalidRequest, parseErr)
		}

		req.Every = every
	}

	return req, nil
}

// FromDomainRequest converts a domain request into its wire form.
func FromDomainRequest(req *domain.Request) *Alarm {
	if req == nil {
		return nil
	}

	alarm := &Alarm{
		ID:       req.ID,
		Title:    req.Title,
		Body:     req.Body,
		Timezone: req.Timezone,
		Repeat:   string(req.Policy()),
		Actions:  req.Actions,
		Options:  req.Options,
		Exact:    req.Exact,
	}

	if req.FireAt != nil {
		alarm.FireAt = req.FireAt.String()
	}

	if req.Every > 0 {
		alarm.Every = req.Every.String()
	}

	return alarm
}

// FromDomainTrigger converts a trigger into its wire form.
func FromDomainTrigger(trigger *domain.Trigger) *Trigger {
	if trigger == nil {
		return nil
	}

	wire := &Trigger{
		ID:       trigger.ID,
		Kind:     string(trigger.Kind),
		At:       trigger.At,
		Repeat:   string(trigger.Repeat),
		Timezone: trigger.Timezone,
		Exact:    trigger.Exact,
	}

	if trigger.Every > 0 {
		wire.Every = trigger.Every.String()
	}

	if len(trigger.Match) > 0 {
		wire.Match = make(map[string]int, len(trigger.Match))
		for field, value := range trigger.Match {
			wire.Match[string(field)] = value
		}
	}

	return wire
}

// ToDomainTrigger converts the wire form back into a trigger.
func ToDomainTrigger(wire *Trigger) (*domain.Trigger, error) {
	if wire == nil {
		return nil, nil //nolint:nilnil // A missing trigger is not an error.
	}

	trigger := &domain.Trigger{
		ID:       wire.ID,
		Kind:     domain.TriggerKind(wire.Kind),
		At:       wire.At,
		Repeat:   domain.RepeatPolicy(wire.Repeat),
		Timezone: wire.Timezone,
		Exact:    wire.Exact,
	}

	if wire.Every != "" {
		every, err := time.ParseDuration(wire.Every)
		if err != nil {
			return nil, fmt.Errorf("trigger every: %w", err)
		}

		trigger.Every = every
	}

	if len(wire.Match) > 0 {
		trigger.Match = make(domain.CalendarMatch, len(wire.Match))
		for field, value := range wire.Match {
			trigger.Match[domain.CalendarField(field)] = value
		}
	}

	if loc := trigger.Location(); loc != nil {
		trigger.At = trigger.At.In(loc)
	}

	return trigger, nil
}

// FromDomainScheduled converts a listing entry into its wire form.
func FromDomainScheduled(entry *domain.Scheduled) *ScheduledAlarm {
	if entry == nil || entry.Record == nil {
		return nil
	}

	wire := &ScheduledAlarm{
		Alarm:     FromDomainRequest(entry.Record.Request),
		Trigger:   FromDomainTrigger(entry.Record.Trigger),
		UpdatedAt: entry.Record.UpdatedAt,
	}

	if !entry.Next.IsZero() {
		next := entry.Next
		wire.Next = &next
	}

	return wire
}

// ToEventTypes converts wire filters into bus types.
func ToEventTypes(names []string) ([]eventbus.Type, error) {
	types := make([]eventbus.Type, 0, len(names))

	for _, name := range names {
		switch t := eventbus.Type(name); t {
		case eventbus.TypeAlarmFired, eventbus.TypeNotificationAction, eventbus.TypePushToken:
			types = append(types, t)
		default:
			return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidRequest, name)
		}
	}

	return types, nil
}

// ToDomainScheduled converts a listing entry back into domain form.
func ToDomainScheduled(wire *ScheduledAlarm) (*domain.Scheduled, error) {
	if wire == nil {
		return nil, nil //nolint:nilnil // A missing entry is not an error.
	}

	request, err := ToDomainRequest(wire.Alarm)
	if err != nil {
		return nil, err
	}

	trigger, err := ToDomainTrigger(wire.Trigger)
	if err != nil {
		return nil, err
	}

	entry := &domain.Scheduled{
		Record: &domain.Record{
			Request:   request,
			Trigger:   trigger,
			UpdatedAt: wire.UpdatedAt,
		},
	}

	if wire.Next != nil {
		entry.Next = *wire.Next
	}

	return entry, nil
}
