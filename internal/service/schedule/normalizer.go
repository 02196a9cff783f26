package schedule

import (
	"fmt"
	"time"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

// Clock returns the current instant.
type Clock func() time.Time

// Normalizer converts requests into triggers.
type Normalizer struct {
	// now is the source of the current instant.
	now Clock
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(n *Normalizer) {
		if clock != nil {
			n.now = clock
		}
	}
}

// NewNormalizer creates a Normalizer using time.Now unless overridden.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		now: time.Now,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Now returns the normalizer's notion of the current instant.
func (n *Normalizer) Now() time.Time {
	return n.now()
}

// Normalize validates the request and returns the trigger of its first future occurrence.
// An occurrence equal to now counts as elapsed.
func (n *Normalizer) Normalize(request *domain.Request) (*domain.Trigger, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	loc, err := request.Location()
	if err != nil {
		return nil, err
	}

	now := n.now().In(loc)
	policy := request.Policy()

	anchor := now.Truncate(time.Minute)
	if request.FireAt != nil && !request.FireAt.IsZero() {
		anchor = request.FireAt.In(loc)
	}

	trigger := &domain.Trigger{
		ID:       request.ID,
		At:       advance(anchor, policy, request.Every, now),
		Repeat:   policy,
		Timezone: loc.String(),
		Exact:    request.Exact,
	}

	switch policy {
	case domain.RepeatNone:
		trigger.Kind = domain.TriggerAbsolute
	case domain.RepeatCustom:
		trigger.Kind = domain.TriggerInterval
		trigger.Every = request.Every
	case domain.RepeatHourly, domain.RepeatDaily, domain.RepeatWeekly, domain.RepeatMonthly, domain.RepeatYearly:
		trigger.Kind = domain.TriggerCalendar
		trigger.Match = calendarMatch(anchor, policy)
	default:
		return nil, fmt.Errorf("%w: unsupported repeat policy %q", domain.ErrInvalidRequest, policy)
	}

	return trigger, nil
}

// Next returns the first occurrence of trigger strictly after the given instant.
// One-shot triggers that already fired yield the zero time.
func Next(trigger *domain.Trigger, after time.Time) time.Time {
	if trigger == nil || trigger.At.IsZero() {
		return time.Time{}
	}

	at := trigger.At.In(trigger.Location())

	if trigger.Kind == domain.TriggerAbsolute {
		if at.After(after) {
			return at
		}

		return time.Time{}
	}

	return advance(at, trigger.Repeat, trigger.Every, after)
}

// calendarMatch picks the wall-clock fields of anchor that identify the repeat.
func calendarMatch(anchor time.Time, policy domain.RepeatPolicy) domain.CalendarMatch {
	match := domain.CalendarMatch{
		domain.FieldMinute: anchor.Minute(),
		domain.FieldSecond: anchor.Second(),
	}

	if policy == domain.RepeatHourly {
		return match
	}

	match[domain.FieldHour] = anchor.Hour()

	switch policy {
	case domain.RepeatWeekly:
		match[domain.FieldWeekday] = int(anchor.Weekday())
	case domain.RepeatMonthly:
		match[domain.FieldDay] = anchor.Day()
	case domain.RepeatYearly:
		match[domain.FieldMonth] = int(anchor.Month())
		match[domain.FieldDay] = anchor.Day()
	case domain.RepeatNone, domain.RepeatHourly, domain.RepeatDaily, domain.RepeatCustom:
	}

	return match
}
