package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/eventbus"
	"github.com/oshokin/alarmee/internal/logger"
	"github.com/oshokin/alarmee/internal/metrics"
	"github.com/oshokin/alarmee/internal/platform"
	repo "github.com/oshokin/alarmee/internal/repository/alarm"
	"github.com/oshokin/alarmee/internal/service/notification"
	"github.com/oshokin/alarmee/internal/service/schedule"
)

// service encapsulates the alarm business logic and persistence orchestration.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	normalizer *schedule.Normalizer
	builder    *notification.Builder
	repo       repo.Repository
	events     eventbus.Bus
	metrics    *metrics.Metrics

	// adapter is attached after construction because the local adapter
	// needs the service's fire handler.
	adapter platform.Adapter

	// allowExact gates per-request exact scheduling.
	allowExact bool
	// defaultTimezone applies to requests without a timezone.
	defaultTimezone string

	// mu serializes mutations so the adapter and repository stay in step.
	mu sync.Mutex
}

// serviceOptions bundles the service collaborators.
type serviceOptions struct {
	Normalizer      *schedule.Normalizer
	Builder         *notification.Builder
	Repository      repo.Repository
	Events          eventbus.Bus
	Metrics         *metrics.Metrics
	AllowExact      bool
	DefaultTimezone string
}

// newService creates a service; attach must be called before scheduling.
func newService(opts serviceOptions) *service {
	s := &service{
		normalizer:      opts.Normalizer,
		builder:         opts.Builder,
		repo:            opts.Repository,
		events:          opts.Events,
		metrics:         opts.Metrics,
		allowExact:      opts.AllowExact,
		defaultTimezone: opts.DefaultTimezone,
	}

	if s.normalizer == nil {
		s.normalizer = schedule.NewNormalizer()
	}

	if s.builder == nil {
		s.builder = notification.NewBuilder()
	}

	if s.events == nil {
		s.events = eventbus.New()
	}

	return s
}

// attach sets the platform adapter.
func (s *service) attach(adapter platform.Adapter) {
	s.adapter = adapter
}

// Schedule normalizes the request, arms it on the platform and persists it.
// Scheduling an existing id replaces it.
func (s *service) Schedule(ctx context.Context, request *domain.Request) (*domain.Trigger, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: request is required", domain.ErrInvalidRequest)
	}

	ctx = logger.WithKV(ctx, "alarm_id", request.ID)

	req := s.prepare(request)

	trigger, err := s.normalizer.Normalize(req)
	if err != nil {
		s.metrics.Rejected("invalid_request")

		return nil, err
	}

	// The image download must not hold the lock.
	payload := s.builder.Build(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.arm(ctx, req, trigger, payload); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Alarm scheduled", "trigger", trigger.String(), "platform", s.adapter.Name())

	return trigger, nil
}

// prepare applies server defaults to a copy of the request.
func (s *service) prepare(request *domain.Request) *domain.Request {
	req := request.Clone()

	if req.Timezone == "" {
		req.Timezone = s.defaultTimezone
	}

	if !s.allowExact {
		req.Exact = false
	}

	return req
}

// arm hands the trigger to the adapter and persists the record.
func (s *service) arm(
	ctx context.Context,
	req *domain.Request,
	trigger *domain.Trigger,
	payload *domain.Notification,
) error {
	if err := s.adapter.Schedule(ctx, trigger, payload); err != nil {
		return fmt.Errorf("schedule on %s: %w", s.adapter.Name(), err)
	}

	record := &domain.Record{
		Request:   req,
		Trigger:   trigger,
		UpdatedAt: s.normalizer.Now().UTC(),
	}

	if err := s.repo.Save(ctx, record); err != nil {
		// Keep the platform and the store consistent.
		if cancelErr := s.adapter.Cancel(ctx, trigger.ID); cancelErr != nil {
			logger.WarnKV(ctx, "Failed to roll back platform alarm", "error", cancelErr)
		}

		return fmt.Errorf("persist alarm: %w", err)
	}

	s.metrics.Scheduled(string(trigger.Kind))
	s.refreshPending(ctx)

	return nil
}

// Cancel removes a scheduled alarm; unknown ids are a no-op.
func (s *service) Cancel(ctx context.Context, id string) error {
	ctx = logger.WithKV(ctx, "alarm_id", id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel on %s: %w", s.adapter.Name(), err)
	}

	_, err := s.repo.Get(ctx, id)

	switch {
	case errors.Is(err, repo.ErrNotFound):
		logger.Debug(ctx, "Cancel requested for unknown alarm")

		return nil
	case err != nil:
		return fmt.Errorf("load alarm: %w", err)
	}

	if err = s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	s.metrics.Cancelled(1)
	s.refreshPending(ctx)
	logger.Info(ctx, "Alarm cancelled")

	return nil
}

// CancelAll removes every alarm and reports how many records were dropped.
func (s *service) CancelAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alarms: %w", err)
	}

	if err = s.adapter.CancelAll(ctx); err != nil {
		return 0, fmt.Errorf("cancel all on %s: %w", s.adapter.Name(), err)
	}

	if err = s.repo.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("delete alarms: %w", err)
	}

	s.metrics.Cancelled(len(records))
	s.metrics.SetPending(0)
	logger.InfoKV(ctx, "All alarms cancelled", "count", len(records))

	return len(records), nil
}

// List returns persisted alarms with their next occurrence.
func (s *service) List(ctx context.Context) ([]*domain.Scheduled, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	now := s.normalizer.Now()
	entries := make([]*domain.Scheduled, 0, len(records))

	for _, record := range records {
		entries = append(entries, &domain.Scheduled{
			Record: record,
			Next:   schedule.Next(record.Trigger, now),
		})
	}

	return entries, nil
}

// Reschedule replays persisted requests after a restart and reports how many were armed.
// Elapsed one-shot alarms move forward by whole days like any other past request.
func (s *service) Reschedule(ctx context.Context) (int, error) {
	ctx = logger.WithName(ctx, "reschedule")

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alarms: %w", err)
	}

	armed := 0

	for _, record := range records {
		if record == nil || record.Request == nil {
			continue
		}

		recordCtx := logger.WithKV(ctx, "alarm_id", record.Request.ID)
		req := s.prepare(record.Request)

		trigger, normalizeErr := s.normalizer.Normalize(req)
		if normalizeErr != nil {
			logger.WarnKV(recordCtx, "Dropping unschedulable alarm", "error", normalizeErr)

			if deleteErr := s.repo.Delete(recordCtx, record.Request.ID); deleteErr != nil {
				logger.WarnKV(recordCtx, "Failed to drop alarm", "error", deleteErr)
			}

			continue
		}

		if armErr := s.arm(recordCtx, req, trigger, s.builder.Build(recordCtx, req)); armErr != nil {
			logger.WarnKV(recordCtx, "Failed to re-arm alarm", "error", armErr)

			continue
		}

		armed++
	}

	logger.InfoKV(ctx, "Alarms restored", "armed", armed, "stored", len(records))

	return armed, nil
}

// ReportAction publishes a notification action tap.
func (s *service) ReportAction(ctx context.Context, alarmID, actionID string) error {
	if alarmID == "" || actionID == "" {
		return fmt.Errorf("%w: alarm and action ids are required", domain.ErrInvalidRequest)
	}

	s.events.Publish(eventbus.Event{
		Type:     eventbus.TypeNotificationAction,
		Time:     s.normalizer.Now(),
		AlarmID:  alarmID,
		ActionID: actionID,
	})

	logger.InfoKV(ctx, "Notification action", "alarm_id", alarmID, "action_id", actionID)

	return nil
}

// ReportPushToken publishes a refreshed push token.
func (s *service) ReportPushToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidRequest)
	}

	s.events.Publish(eventbus.Event{
		Type:  eventbus.TypePushToken,
		Time:  s.normalizer.Now(),
		Token: token,
	})

	logger.Debug(ctx, "Push token refreshed")

	return nil
}

// onAction adapts ReportAction to platform.ActionHandler.
func (s *service) onAction(ctx context.Context, alarmID, actionID string) {
	if err := s.ReportAction(ctx, alarmID, actionID); err != nil {
		logger.WarnKV(ctx, "Dropping action", "error", err)
	}
}

// onDegrade records a weaker scheduling guarantee.
func (s *service) onDegrade(ctx context.Context, alarmID, reason string) {
	s.metrics.Degraded(reason)
	logger.WarnKV(ctx, "Alarm scheduled inexactly", "alarm_id", alarmID, "reason", reason)
}

// fire runs when the platform posts an alarm.
func (s *service) fire(ctx context.Context, trigger *domain.Trigger, posted *domain.Notification) {
	ctx = logger.WithKV(ctx, "alarm_id", trigger.ID)

	payload := posted

	record, err := s.repo.Get(ctx, trigger.ID)

	switch {
	case err == nil && record.Request == nil:
		logger.Warn(ctx, "Fired alarm has a malformed stored record")
	case err == nil:
		payload = s.builder.Build(ctx, record.Request)
	case errors.Is(err, repo.ErrNotFound):
		logger.Debug(ctx, "Fired alarm has no stored record")
	default:
		logger.WarnKV(ctx, "Failed to load fired alarm", "error", err)
	}

	if payload == nil {
		payload = &domain.Notification{ID: trigger.ID}
	}

	logger.InfoKV(ctx, "Alarm fired",
		"title", payload.Title,
		"body", payload.Body,
		"actions", len(payload.Actions),
		"has_image", payload.HasImage())

	s.metrics.Fired(string(trigger.Kind))
	s.events.Publish(eventbus.Event{
		Type:         eventbus.TypeAlarmFired,
		Time:         s.normalizer.Now(),
		AlarmID:      trigger.ID,
		Notification: payload,
	})

	if trigger.Repeats() || record == nil {
		return
	}

	s.forgetFired(ctx, trigger)
}

// forgetFired drops the record of a fired one-shot unless it was rescheduled meanwhile.
func (s *service) forgetFired(ctx context.Context, trigger *domain.Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.Get(ctx, trigger.ID)
	if err != nil || record.Trigger == nil || !record.Trigger.At.Equal(trigger.At) {
		return
	}

	if err = s.repo.Delete(ctx, trigger.ID); err != nil {
		logger.WarnKV(ctx, "Failed to drop fired alarm", "error", err)

		return
	}

	s.refreshPending(ctx)
}

// refreshPending updates the pending gauge from the repository.
func (s *service) refreshPending(ctx context.Context) {
	if s.metrics == nil {
		return
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		logger.DebugKV(ctx, "Failed to count alarms", "error", err)

		return
	}

	s.metrics.SetPending(len(records))
}
