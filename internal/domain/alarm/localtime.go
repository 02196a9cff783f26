package alarm

import (
	"fmt"
	"strings"
	"time"
)

// LocalDateTimeLayout is the canonical text form of a LocalDateTime.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

// localDateTimeLayouts are accepted when parsing user input.
//
//nolint:gochecknoglobals // Read-only parse table.
var localDateTimeLayouts = []string{
	LocalDateTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LocalDateTime is a wall-clock date and time without a zone.
// It becomes an instant only once resolved in a location.
type LocalDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// ParseLocalDateTime parses "2006-01-02T15:04:05" and its minute-precision variants.
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	s = strings.TrimSpace(s)

	for _, layout := range localDateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalDateTimeOf(t), nil
		}
	}

	return LocalDateTime{}, fmt.Errorf("parse local date-time %q: expected %s", s, LocalDateTimeLayout)
}

// LocalDateTimeOf returns the wall clock of t in its own location.
func LocalDateTimeOf(t time.Time) LocalDateTime {
	return LocalDateTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// In resolves the wall clock in loc. Non-existent wall times inside a DST
// gap are normalized forward by time.Date.
func (l LocalDateTime) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	return time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second, 0, loc)
}

// IsZero reports whether l is the zero value.
func (l LocalDateTime) IsZero() bool {
	return l == LocalDateTime{}
}

// String renders l in LocalDateTimeLayout.
func (l LocalDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second)
}

// MarshalText implements encoding.TextMarshaler.
func (l LocalDateTime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LocalDateTime) UnmarshalText(text []byte) error {
	parsed, err := ParseLocalDateTime(string(text))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}
