// Package ical renders scheduled alarms as an iCalendar document so they can
// be imported into calendar applications.
//
// Each alarm becomes one VEVENT starting at its next occurrence, with an
// RRULE for repeats and a VALARM that displays the title at start time.
// One-shot alarms that already fired are left out.
package ical

import (
	"fmt"
	"io"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/version"
)

// productID identifies the producer in PRODID.
const productID = "-//alarmee//alarmee %s//EN"

// Calendar builds a VCALENDAR for entries; stamp fills DTSTAMP.
func Calendar(entries []*domain.Scheduled, stamp time.Time) (*goical.Calendar, error) {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, fmt.Sprintf(productID, version.Version))

	for _, entry := range entries {
		event, err := eventFor(entry, stamp)
		if err != nil {
			return nil, err
		}

		if event != nil {
			cal.Children = append(cal.Children, event.Component)
		}
	}

	return cal, nil
}

// Encode writes the calendar for entries to w.
func Encode(w io.Writer, entries []*domain.Scheduled, stamp time.Time) error {
	cal, err := Calendar(entries, stamp)
	if err != nil {
		return err
	}

	if err = goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}

	return nil
}

func eventFor(entry *domain.Scheduled, stamp time.Time) (*goical.Event, error) {
	if entry == nil || entry.Record == nil || entry.Record.Request == nil || entry.Record.Trigger == nil {
		return nil, nil //nolint:nilnil // Incomplete entries are skipped.
	}

	if entry.Next.IsZero() {
		return nil, nil //nolint:nilnil // Fired one-shot alarms have nothing left to export.
	}

	req, trigger := entry.Record.Request, entry.Record.Trigger

	rule, err := RecurrenceRule(trigger)
	if err != nil {
		return nil, err
	}

	start := entry.Next.In(trigger.Location())

	event := goical.NewEvent()
	event.Props.SetText(goical.PropUID, req.ID)
	event.Props.SetDateTime(goical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(goical.PropDateTimeStart, start)
	event.Props.SetText(goical.PropSummary, summary(req))

	if req.Body != "" {
		event.Props.SetText(goical.PropDescription, req.Body)
	}

	if req.Options.DeepLink != "" {
		event.Props.SetText(goical.PropURL, req.Options.DeepLink)
	}

	if rule != "" {
		event.Props.Set(&goical.Prop{
			Name:   goical.PropRecurrenceRule,
			Params: make(goical.Params),
			Value:  rule,
		})
	}

	reminder := goical.NewComponent(goical.CompAlarm)
	reminder.Props.SetText(goical.PropAction, "DISPLAY")
	reminder.Props.SetText(goical.PropDescription, summary(req))
	reminder.Props.Set(&goical.Prop{
		Name:   goical.PropTrigger,
		Params: goical.Params{goical.ParamValue: []string{string(goical.ValueDuration)}},
		Value:  "PT0S",
	})

	event.Children = append(event.Children, reminder)

	return event, nil
}

func summary(req *domain.Request) string {
	if req.Title != "" {
		return req.Title
	}

	return req.ID
}

// weekdays maps time.Weekday to RRULE BYDAY codes.
//
//nolint:gochecknoglobals // Read-only lookup table.
var weekdays = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// RecurrenceRule renders the RRULE value for a trigger; one-shot triggers yield "".
// Monthly and yearly rules skip months without the day, like the scheduler does.
func RecurrenceRule(trigger *domain.Trigger) (string, error) {
	switch trigger.Kind {
	case domain.TriggerAbsolute:
		return "", nil
	case domain.TriggerInterval:
		return intervalRule(trigger.Every)
	case domain.TriggerCalendar:
	default:
		return "", fmt.Errorf("unsupported trigger kind %q", trigger.Kind)
	}

	parts := make([]string, 0, 3)

	switch trigger.Repeat {
	case domain.RepeatHourly:
		parts = append(parts, "FREQ=HOURLY")
	case domain.RepeatDaily:
		parts = append(parts, "FREQ=DAILY")
	case domain.RepeatWeekly:
		parts = append(parts, "FREQ=WEEKLY")

		if weekday, ok := trigger.Match.Get(domain.FieldWeekday); ok && weekday >= 0 && weekday < len(weekdays) {
			parts = append(parts, "BYDAY="+weekdays[weekday])
		}
	case domain.RepeatMonthly:
		parts = append(parts, "FREQ=MONTHLY")

		if day, ok := trigger.Match.Get(domain.FieldDay); ok {
			parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", day))
		}
	case domain.RepeatYearly:
		parts = append(parts, "FREQ=YEARLY")

		if month, ok := trigger.Match.Get(domain.FieldMonth); ok {
			parts = append(parts, fmt.Sprintf("BYMONTH=%d", month))
		}

		if day, ok := trigger.Match.Get(domain.FieldDay); ok {
			parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", day))
		}
	default:
		return "", fmt.Errorf("unsupported calendar repeat %q", trigger.Repeat)
	}

	return strings.Join(parts, ";"), nil
}

// intervalRule expresses a fixed interval with the coarsest exact frequency.
func intervalRule(every time.Duration) (string, error) {
	switch {
	case every < time.Minute:
		return "", fmt.Errorf("interval %s is shorter than a minute", every)
	case every%(24*time.Hour) == 0:
		return fmt.Sprintf("FREQ=DAILY;INTERVAL=%d", every/(24*time.Hour)), nil
	case every%time.Hour == 0:
		return fmt.Sprintf("FREQ=HOURLY;INTERVAL=%d", every/time.Hour), nil
	case every%time.Minute == 0:
		return fmt.Sprintf("FREQ=MINUTELY;INTERVAL=%d", every/time.Minute), nil
	default:
		return fmt.Sprintf("FREQ=SECONDLY;INTERVAL=%d", every/time.Second), nil
	}
}
