package schedule

import (
	"time"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

const (
	// daysPerWeek is the step of weekly repeats.
	daysPerWeek = 7
	// monthsPerYear bounds the search for a month containing the anchor day.
	monthsPerYear = 12
	// leapCycleYears bounds the search for a year containing Feb 29.
	leapCycleYears = 8

	// maxJump keeps anchor-to-now gaps well inside the time.Duration range.
	maxJump = 100 * 365 * 24 * time.Hour
)

// advance moves anchor forward by whole repeat units until it is strictly after now.
// Non-repeating alarms step by one day.
func advance(anchor time.Time, policy domain.RepeatPolicy, every time.Duration, now time.Time) time.Time {
	if anchor.After(now) {
		return anchor
	}

	switch policy {
	case domain.RepeatHourly:
		return advanceFixed(anchor, time.Hour, now)
	case domain.RepeatCustom:
		return advanceFixed(anchor, every, now)
	case domain.RepeatWeekly:
		return advanceDays(anchor, daysPerWeek, now)
	case domain.RepeatMonthly:
		return advanceMonths(anchor, 1, now)
	case domain.RepeatYearly:
		return advanceMonths(anchor, monthsPerYear, now)
	case domain.RepeatNone, domain.RepeatDaily:
		return advanceDays(anchor, 1, now)
	default:
		return advanceDays(anchor, 1, now)
	}
}

// advanceFixed adds whole multiples of step in absolute time.
func advanceFixed(anchor time.Time, step time.Duration, now time.Time) time.Time {
	if step <= 0 {
		return anchor
	}

	// Sub saturates past ~292 years, so far anchors approach now in whole-step chunks.
	chunk := max(maxJump/step, 1) * step
	for now.Sub(anchor) > maxJump {
		anchor = anchor.Add(chunk)
	}

	if anchor.After(now) {
		return anchor
	}

	steps := now.Sub(anchor)/step + 1

	return anchor.Add(steps * step)
}

// advanceDays adds whole multiples of stepDays on the wall clock, so a 9:00
// alarm stays at 9:00 across DST changes.
func advanceDays(anchor time.Time, stepDays int, now time.Time) time.Time {
	at := func(n int) time.Time {
		return time.Date(
			anchor.Year(), anchor.Month(), anchor.Day()+n*stepDays,
			anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(),
			anchor.Location(),
		)
	}

	// Jump close to now, then settle on the smallest n that is in the future.
	n := max(int(now.Sub(anchor)/(time.Duration(stepDays)*24*time.Hour))-1, 0)

	for n > 0 && at(n-1).After(now) {
		n--
	}

	for !at(n).After(now) {
		n++
	}

	return at(n)
}

// advanceMonths adds multiples of stepMonths, skipping months (or years) that
// do not contain the anchor day, the way an OS calendar match would.
func advanceMonths(anchor time.Time, stepMonths int, now time.Time) time.Time {
	at := func(n int) (time.Time, bool) {
		t := time.Date(
			anchor.Year(), anchor.Month()+time.Month(n*stepMonths), anchor.Day(),
			anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(),
			anchor.Location(),
		)

		return t, t.Day() == anchor.Day()
	}

	elapsed := (now.Year()-anchor.Year())*monthsPerYear + int(now.Month()) - int(anchor.Month())
	n := max(elapsed/stepMonths-1, 0)

	limit := n + monthsPerYear
	if stepMonths == monthsPerYear {
		limit = n + leapCycleYears
	}

	for ; n <= limit; n++ {
		if t, ok := at(n); ok && t.After(now) {
			return t
		}
	}

	// Unreachable for valid dates; fall back to the plain day step.
	return advanceDays(anchor, 1, now)
}
