package local

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/logger"
	"github.com/oshokin/alarmee/internal/platform"
	"github.com/oshokin/alarmee/internal/service/schedule"
)

// errFireHandlerRequired is returned by New without a handler.
var errFireHandlerRequired = errors.New("fire handler is required")

// specParser accepts the six-field specs produced by calendarSpec.
//
//nolint:gochecknoglobals // Parsers are immutable and safe to share.
var specParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Adapter implements platform.Adapter with an in-process cron runner.
type Adapter struct {
	cron *cron.Cron
	fire platform.FireHandler
	// ctx is passed to fire handlers; it carries the adapter logger.
	ctx context.Context //nolint:containedctx // Jobs run outside any request context.

	// mu protects entries.
	mu      sync.Mutex
	entries map[string]cron.EntryID

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a stopped local adapter. Call Start to begin firing.
func New(ctx context.Context, fire platform.FireHandler) (*Adapter, error) {
	if fire == nil {
		return nil, errFireHandlerRequired
	}

	ctx = logger.WithName(ctx, "local-platform")

	return &Adapter{
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(newCronLogger(ctx))),
			cron.WithLogger(newCronLogger(ctx)),
		),
		fire:    fire,
		ctx:     ctx,
		entries: make(map[string]cron.EntryID),
	}, nil
}

// Name implements platform.Adapter.
func (a *Adapter) Name() string {
	return platform.NameLocal
}

// Start launches the cron runner in its own goroutine.
func (a *Adapter) Start() {
	a.startOnce.Do(a.cron.Start)
}

// Stop halts the runner and waits for running jobs to return.
func (a *Adapter) Stop() {
	a.stopOnce.Do(func() {
		<-a.cron.Stop().Done()
	})
}

// Schedule registers trigger, replacing any entry with the same id.
func (a *Adapter) Schedule(ctx context.Context, trigger *domain.Trigger, notification *domain.Notification) error {
	sched, err := scheduleFor(trigger)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if previous, ok := a.entries[trigger.ID]; ok {
		a.cron.Remove(previous)
	}

	snapshot := *trigger
	id := a.cron.Schedule(sched, cron.FuncJob(func() {
		a.run(&snapshot, notification)
	}))
	a.entries[trigger.ID] = id

	logger.DebugKV(ctx, "Local alarm registered", "alarm_id", trigger.ID, "trigger", trigger.String())

	return nil
}

// run fires the alarm and forgets one-shot entries.
func (a *Adapter) run(trigger *domain.Trigger, notification *domain.Notification) {
	if !trigger.Repeats() {
		a.forget(trigger.ID)
	}

	a.fire(logger.WithKV(a.ctx, "alarm_id", trigger.ID), trigger, notification)
}

// forget drops the entry for id, if present.
func (a *Adapter) forget(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if entryID, ok := a.entries[id]; ok {
		a.cron.Remove(entryID)
		delete(a.entries, id)
	}
}

// Cancel removes the entry for id; unknown ids are ignored.
func (a *Adapter) Cancel(_ context.Context, id string) error {
	a.forget(id)

	return nil
}

// CancelAll removes every registered entry.
func (a *Adapter) CancelAll(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, entryID := range a.entries {
		a.cron.Remove(entryID)
		delete(a.entries, id)
	}

	return nil
}

// Next returns the next fire time of id.
func (a *Adapter) Next(id string) (time.Time, bool) {
	a.mu.Lock()
	entryID, ok := a.entries[id]
	a.mu.Unlock()

	if !ok {
		return time.Time{}, false
	}

	entry := a.cron.Entry(entryID)
	if !entry.Valid() {
		return time.Time{}, false
	}

	if !entry.Next.IsZero() {
		return entry.Next, true
	}

	return entry.Schedule.Next(time.Now()), true
}

// Len returns the number of registered alarms.
func (a *Adapter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.entries)
}

// scheduleFor converts trigger into a cron schedule.
func scheduleFor(trigger *domain.Trigger) (cron.Schedule, error) {
	switch trigger.Kind {
	case domain.TriggerAbsolute:
		return &onceSchedule{at: trigger.At}, nil
	case domain.TriggerInterval:
		if trigger.Every <= 0 {
			return nil, fmt.Errorf("interval alarm %s has no period", trigger.ID)
		}

		return &intervalSchedule{trigger: *trigger}, nil
	case domain.TriggerCalendar:
		spec := calendarSpec(trigger.Match, trigger.Location())

		sched, err := specParser.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("parse calendar spec %q: %w", spec, err)
		}

		return &anchoredSchedule{Schedule: sched, at: trigger.At}, nil
	default:
		return nil, fmt.Errorf("unsupported trigger kind %q", trigger.Kind)
	}
}

// calendarSpec renders a match as "CRON_TZ=<zone> sec min hour dom month dow".
func calendarSpec(match domain.CalendarMatch, loc *time.Location) string {
	field := func(f domain.CalendarField) string {
		if v, ok := match.Get(f); ok {
			return strconv.Itoa(v)
		}

		return "*"
	}

	fields := []string{
		field(domain.FieldSecond),
		field(domain.FieldMinute),
		field(domain.FieldHour),
		field(domain.FieldDay),
		field(domain.FieldMonth),
		field(domain.FieldWeekday),
	}

	return "CRON_TZ=" + loc.String() + " " + strings.Join(fields, " ")
}

// onceSchedule fires a single time.
type onceSchedule struct {
	at time.Time
}

// Next returns at while it is still ahead; the zero time stops the entry.
func (s *onceSchedule) Next(t time.Time) time.Time {
	if s.at.After(t) {
		return s.at
	}

	return time.Time{}
}

// anchoredSchedule suppresses calendar matches before the first occurrence.
type anchoredSchedule struct {
	cron.Schedule

	at time.Time
}

// Next returns the first match at or after the anchor and strictly after t.
func (s *anchoredSchedule) Next(t time.Time) time.Time {
	if floor := s.at.Add(-time.Nanosecond); floor.After(t) {
		t = floor
	}

	return s.Schedule.Next(t)
}

// intervalSchedule fires at the anchor and every period after it.
type intervalSchedule struct {
	trigger domain.Trigger
}

// Next delegates to the normalizer so anchors and periods stay consistent.
func (s *intervalSchedule) Next(t time.Time) time.Time {
	if s.trigger.At.After(t) {
		return s.trigger.At
	}

	return schedule.Next(&s.trigger, t)
}
