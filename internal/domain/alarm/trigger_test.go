package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestCalendarMatch verifies matching and rendering of calendar components.
func TestCalendarMatch(t *testing.T) {
	t.Parallel()

	m := CalendarMatch{FieldWeekday: int(time.Monday), FieldHour: 9, FieldMinute: 0, FieldSecond: 0}

	monday := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	require.True(t, m.Matches(monday))
	require.False(t, m.Matches(tuesday))
	require.Equal(t, "weekday=1 hour=9 minute=0 second=0", m.String())

	v, ok := m.Get(FieldHour)
	require.True(t, ok)
	require.Equal(t, 9, v)

	_, ok = m.Get(FieldMonth)
	require.False(t, ok)
}

// TestRecordClone verifies that the trigger match map is copied.
func TestRecordClone(t *testing.T) {
	t.Parallel()

	r := &Record{
		Request: &Request{ID: "a"},
		Trigger: &Trigger{ID: "a", Kind: TriggerCalendar, Match: CalendarMatch{FieldHour: 9}},
	}

	c := r.Clone()
	c.Trigger.Match[FieldHour] = 10

	require.Equal(t, 9, r.Trigger.Match[FieldHour])
	require.NotSame(t, r.Request, c.Request)
	require.True(t, c.Trigger.Repeats())
}
