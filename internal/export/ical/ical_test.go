package ical

import (
	"bytes"
	"testing"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

func calendarTrigger(repeat domain.RepeatPolicy, match domain.CalendarMatch) *domain.Trigger {
	return &domain.Trigger{Kind: domain.TriggerCalendar, Repeat: repeat, Match: match}
}

func TestRecurrenceRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		trigger *domain.Trigger
		want    string
		wantErr bool
	}{
		{name: "absolute", trigger: &domain.Trigger{Kind: domain.TriggerAbsolute}, want: ""},
		{
			name:    "hourly",
			trigger: calendarTrigger(domain.RepeatHourly, domain.CalendarMatch{domain.FieldMinute: 15}),
			want:    "FREQ=HOURLY",
		},
		{name: "daily", trigger: calendarTrigger(domain.RepeatDaily, nil), want: "FREQ=DAILY"},
		{
			name:    "weekly",
			trigger: calendarTrigger(domain.RepeatWeekly, domain.CalendarMatch{domain.FieldWeekday: int(time.Monday)}),
			want:    "FREQ=WEEKLY;BYDAY=MO",
		},
		{
			name:    "monthly",
			trigger: calendarTrigger(domain.RepeatMonthly, domain.CalendarMatch{domain.FieldDay: 31}),
			want:    "FREQ=MONTHLY;BYMONTHDAY=31",
		},
		{
			name: "yearly",
			trigger: calendarTrigger(domain.RepeatYearly, domain.CalendarMatch{
				domain.FieldMonth: 2,
				domain.FieldDay:   29,
			}),
			want: "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=29",
		},
		{
			name:    "interval minutes",
			trigger: &domain.Trigger{Kind: domain.TriggerInterval, Every: 90 * time.Minute},
			want:    "FREQ=MINUTELY;INTERVAL=90",
		},
		{
			name:    "interval hours",
			trigger: &domain.Trigger{Kind: domain.TriggerInterval, Every: 6 * time.Hour},
			want:    "FREQ=HOURLY;INTERVAL=6",
		},
		{
			name:    "interval days",
			trigger: &domain.Trigger{Kind: domain.TriggerInterval, Every: 48 * time.Hour},
			want:    "FREQ=DAILY;INTERVAL=2",
		},
		{
			name:    "interval seconds",
			trigger: &domain.Trigger{Kind: domain.TriggerInterval, Every: 90 * time.Second},
			want:    "FREQ=SECONDLY;INTERVAL=90",
		},
		{
			name:    "interval too short",
			trigger: &domain.Trigger{Kind: domain.TriggerInterval, Every: time.Second},
			wantErr: true,
		},
		{name: "unknown kind", trigger: &domain.Trigger{Kind: "lunar"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := RecurrenceRule(tt.trigger)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_Roundtrip(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	next := time.Date(2026, time.March, 9, 9, 0, 0, 0, berlin)
	stamp := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	entries := []*domain.Scheduled{
		{
			Record: &domain.Record{
				Request: &domain.Request{
					ID:      "stretch",
					Title:   "Stretch",
					Body:    "Stand up",
					Options: domain.Options{DeepLink: "habits://stretch"},
				},
				Trigger: &domain.Trigger{
					ID:       "stretch",
					Kind:     domain.TriggerCalendar,
					At:       next,
					Repeat:   domain.RepeatWeekly,
					Timezone: "Europe/Berlin",
					Match:    domain.CalendarMatch{domain.FieldWeekday: int(time.Monday), domain.FieldHour: 9},
				},
			},
			Next: next,
		},
		{
			// Already fired, nothing to export.
			Record: &domain.Record{
				Request: &domain.Request{ID: "gone"},
				Trigger: &domain.Trigger{ID: "gone", Kind: domain.TriggerAbsolute, At: stamp},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, entries, stamp))

	cal, err := goical.NewDecoder(&buf).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)

	event := events[0]

	uid, err := event.Props.Text(goical.PropUID)
	require.NoError(t, err)
	require.Equal(t, "stretch", uid)

	title, err := event.Props.Text(goical.PropSummary)
	require.NoError(t, err)
	require.Equal(t, "Stretch", title)

	start, err := event.DateTimeStart(time.UTC)
	require.NoError(t, err)
	require.True(t, next.Equal(start))

	rule := event.Props.Get(goical.PropRecurrenceRule)
	require.NotNil(t, rule)
	require.Equal(t, "FREQ=WEEKLY;BYDAY=MO", rule.Value)

	require.Len(t, event.Children, 1)
	require.Equal(t, goical.CompAlarm, event.Children[0].Name)
}
