package alarm

import (
	"fmt"
	"strings"
	"time"
)

// RepeatPolicy describes how an alarm recurs.
type RepeatPolicy string

const (
	// RepeatNone fires once.
	RepeatNone RepeatPolicy = "none"
	// RepeatHourly fires every hour at the same minute and second.
	RepeatHourly RepeatPolicy = "hourly"
	// RepeatDaily fires every day at the same wall-clock time.
	RepeatDaily RepeatPolicy = "daily"
	// RepeatWeekly fires on the same weekday and time every week.
	RepeatWeekly RepeatPolicy = "weekly"
	// RepeatMonthly fires on the same day of month and time.
	RepeatMonthly RepeatPolicy = "monthly"
	// RepeatYearly fires on the same month, day and time.
	RepeatYearly RepeatPolicy = "yearly"
	// RepeatCustom fires every Request.Every starting at the anchor.
	RepeatCustom RepeatPolicy = "custom"
)

const (
	// MinCustomInterval is the shortest allowed custom repeat duration.
	MinCustomInterval = time.Minute
	// MaxActions is the number of action buttons a notification can display.
	MaxActions = 3
)

// ParseRepeatPolicy converts user input into a RepeatPolicy. Empty input means RepeatNone.
func ParseRepeatPolicy(s string) (RepeatPolicy, error) {
	switch p := RepeatPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RepeatNone, nil
	case RepeatNone, RepeatHourly, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly, RepeatCustom:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown repeat policy %q", ErrInvalidRequest, s)
	}
}

// Action is a button shown on the notification.
type Action struct {
	ID    string `json:"id"    yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Options carries the presentation settings of the notification.
type Options struct {
	Icon     string            `json:"icon,omitempty"`
	Color    string            `json:"color,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	ImageURL string            `json:"image_url,omitempty"`
	DeepLink string            `json:"deep_link,omitempty"`
	Channel  string            `json:"channel,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// Request is a caller's description of an alarm.
type Request struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	FireAt *LocalDateTime `json:"fire_at,omitempty"`
	// Timezone is an IANA name; empty means UTC.
	Timezone string       `json:"timezone,omitempty"`
	Repeat   RepeatPolicy `json:"repeat"`
	// Every is the custom repeat duration.
	Every   time.Duration `json:"every,omitempty"`
	Actions []Action      `json:"actions,omitempty"`
	Options Options       `json:"options"`
	// Exact opts into exact alarms where the platform supports them.
	Exact bool `json:"exact,omitempty"`
}

// Policy returns the repeat policy, treating empty as RepeatNone.
func (r *Request) Policy() RepeatPolicy {
	if r.Repeat == "" {
		return RepeatNone
	}

	return r.Repeat
}

// Location resolves Timezone.
func (r *Request) Location() (*time.Location, error) {
	if strings.TrimSpace(r.Timezone) == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidRequest, r.Timezone)
	}

	return loc, nil
}

// Validate checks the request invariants. Every failure wraps ErrInvalidRequest.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}

	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}

	policy, err := ParseRepeatPolicy(string(r.Repeat))
	if err != nil {
		return err
	}

	switch policy {
	case RepeatNone:
		if r.FireAt == nil || r.FireAt.IsZero() {
			return fmt.Errorf("%w: fire_at is required for non-repeating alarms", ErrInvalidRequest)
		}
	case RepeatCustom:
		if r.Every < MinCustomInterval {
			return fmt.Errorf("%w: custom repeat must be at least %s, got %s",
				ErrInvalidRequest, MinCustomInterval, r.Every)
		}
	case RepeatHourly, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
	}

	if _, err := r.Location(); err != nil {
		return err
	}

	return nil
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}

	cloned := *r

	if r.FireAt != nil {
		fireAt := *r.FireAt
		cloned.FireAt = &fireAt
	}

	if r.Actions != nil {
		cloned.Actions = append([]Action(nil), r.Actions...)
	}

	if r.Options.Data != nil {
		cloned.Options.Data = make(map[string]string, len(r.Options.Data))
		for k, v := range r.Options.Data {
			cloned.Options.Data[k] = v
		}
	}

	return &cloned
}
