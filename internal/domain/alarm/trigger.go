package alarm

import (
	"fmt"
	"strings"
	"time"
)

// TriggerKind tells platform adapters which OS primitive to use.
type TriggerKind string

const (
	// TriggerAbsolute fires once at Trigger.At.
	TriggerAbsolute TriggerKind = "absolute"
	// TriggerInterval fires at Trigger.At and then every Trigger.Every.
	TriggerInterval TriggerKind = "interval"
	// TriggerCalendar fires whenever the wall clock matches Trigger.Match.
	TriggerCalendar TriggerKind = "calendar"
)

// CalendarField names one component of a calendar match.
type CalendarField string

const (
	FieldMonth   CalendarField = "month"
	FieldDay     CalendarField = "day"
	FieldWeekday CalendarField = "weekday"
	FieldHour    CalendarField = "hour"
	FieldMinute  CalendarField = "minute"
	FieldSecond  CalendarField = "second"
)

// calendarFieldOrder is the rendering order, most significant first.
//
//nolint:gochecknoglobals // Read-only ordering table.
var calendarFieldOrder = []CalendarField{FieldMonth, FieldDay, FieldWeekday, FieldHour, FieldMinute, FieldSecond}

// CalendarMatch holds the calendar components an occurrence must match.
// Absent fields match any value. Weekday uses time.Weekday numbering (Sunday is 0).
type CalendarMatch map[CalendarField]int

// Get returns the value of f and whether it is set.
func (m CalendarMatch) Get(f CalendarField) (int, bool) {
	v, ok := m[f]

	return v, ok
}

// Matches reports whether t, read in its own location, satisfies every set field.
func (m CalendarMatch) Matches(t time.Time) bool {
	for field, want := range m {
		var got int

		switch field {
		case FieldMonth:
			got = int(t.Month())
		case FieldDay:
			got = t.Day()
		case FieldWeekday:
			got = int(t.Weekday())
		case FieldHour:
			got = t.Hour()
		case FieldMinute:
			got = t.Minute()
		case FieldSecond:
			got = t.Second()
		default:
			return false
		}

		if got != want {
			return false
		}
	}

	return true
}

// String renders the match as "day=15 hour=9 minute=0".
func (m CalendarMatch) String() string {
	parts := make([]string, 0, len(m))

	for _, field := range calendarFieldOrder {
		if v, ok := m[field]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", field, v))
		}
	}

	return strings.Join(parts, " ")
}

// Trigger is the normalized schedule of one alarm.
type Trigger struct {
	ID   string      `json:"id"`
	Kind TriggerKind `json:"kind"`
	// At is the first occurrence, always after the normalization instant.
	At time.Time `json:"at"`
	// Every is set for TriggerInterval.
	Every time.Duration `json:"every,omitempty"`
	// Match is set for TriggerCalendar.
	Match    CalendarMatch `json:"match,omitempty"`
	Repeat   RepeatPolicy  `json:"repeat"`
	Timezone string        `json:"timezone,omitempty"`
	// Exact is copied from the request.
	Exact bool `json:"exact,omitempty"`
}

// Repeats reports whether the trigger fires more than once.
func (t *Trigger) Repeats() bool {
	return t.Kind != TriggerAbsolute
}

// Location resolves Timezone, falling back to the zone of At.
func (t *Trigger) Location() *time.Location {
	if t.Timezone != "" {
		if loc, err := time.LoadLocation(t.Timezone); err == nil {
			return loc
		}
	}

	return t.At.Location()
}

// String renders a short human readable description for logs.
func (t *Trigger) String() string {
	switch t.Kind {
	case TriggerInterval:
		return fmt.Sprintf("every %s from %s", t.Every, t.At.Format(time.RFC3339))
	case TriggerCalendar:
		return fmt.Sprintf("%s on calendar match [%s] from %s", t.Repeat, t.Match, t.At.Format(time.RFC3339))
	default:
		return "once at " + t.At.Format(time.RFC3339)
	}
}
