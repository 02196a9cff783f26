package alarm

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/eventbus"
	"github.com/oshokin/alarmee/internal/logger"
)

// watchBuffer is the per-stream event queue length.
const watchBuffer = 64

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Schedule(ctx context.Context, req *domain.Request) (*domain.Trigger, error)
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) (int, error)
	List(ctx context.Context) ([]*domain.Scheduled, error)
	ReportAction(ctx context.Context, alarmID, actionID string) error
	ReportPushToken(ctx context.Context, token string) error
}

// Server implements the AlarmService gRPC API.
type Server struct {
	// service provides the business logic for alarm operations.
	service Service
	// events feeds Watch streams.
	events eventbus.Bus
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service, events eventbus.Bus) *Server {
	return &Server{
		service: service,
		events:  events,
	}
}

// Schedule normalizes and arms an alarm.
func (s *Server) Schedule(ctx context.Context, req *ScheduleRequest) (*ScheduleResponse, error) {
	if req == nil || req.Alarm == nil {
		return nil, status.Error(codes.InvalidArgument, "alarm is required")
	}

	request, err := ToDomainRequest(req.Alarm)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	trigger, err := s.service.Schedule(ctx, request)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return &ScheduleResponse{Trigger: FromDomainTrigger(trigger)}, nil
}

// Cancel removes one alarm; unknown ids succeed.
func (s *Server) Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	if req == nil || req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	if err := s.service.Cancel(ctx, req.ID); err != nil {
		return nil, toStatus(ctx, err)
	}

	return new(CancelResponse), nil
}

// CancelAll removes every alarm.
func (s *Server) CancelAll(ctx context.Context, _ *CancelAllRequest) (*CancelAllResponse, error) {
	cancelled, err := s.service.CancelAll(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return &CancelAllResponse{Cancelled: cancelled}, nil
}

// List returns persisted alarms with their next occurrence.
func (s *Server) List(ctx context.Context, _ *ListRequest) (*ListResponse, error) {
	entries, err := s.service.List(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	response := &ListResponse{Alarms: make([]*ScheduledAlarm, 0, len(entries))}
	for _, entry := range entries {
		if wire := FromDomainScheduled(entry); wire != nil {
			response.Alarms = append(response.Alarms, wire)
		}
	}

	return response, nil
}

// ReportAction forwards a notification action tap to watchers.
func (s *Server) ReportAction(ctx context.Context, req *ReportActionRequest) (*ReportActionResponse, error) {
	if req == nil || req.AlarmID == "" || req.ActionID == "" {
		return nil, status.Error(codes.InvalidArgument, "alarm_id and action_id are required")
	}

	if err := s.service.ReportAction(ctx, req.AlarmID, req.ActionID); err != nil {
		return nil, toStatus(ctx, err)
	}

	return new(ReportActionResponse), nil
}

// ReportPushToken forwards a refreshed push token to watchers.
func (s *Server) ReportPushToken(ctx context.Context, req *ReportPushTokenRequest) (*ReportPushTokenResponse, error) {
	if req == nil || req.Token == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	if err := s.service.ReportPushToken(ctx, req.Token); err != nil {
		return nil, toStatus(ctx, err)
	}

	return new(ReportPushTokenResponse), nil
}

// Watch streams bus events until the client goes away.
func (s *Server) Watch(req *WatchRequest, stream WatchServer) error {
	ctx := logger.WithName(stream.Context(), "watch")

	if s.events == nil {
		return status.Error(codes.Unavailable, "event stream is not configured")
	}

	var names []string
	if req != nil {
		names = req.Types
	}

	types, err := ToEventTypes(names)
	if err != nil {
		return toStatus(ctx, err)
	}

	events, unsubscribe := s.events.Subscribe(watchBuffer, types...)
	defer unsubscribe()

	logger.DebugKV(ctx, "Watcher subscribed", "types", names)

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Watcher left")

			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			if err = stream.Send(&event); err != nil {
				return err
			}
		}
	}
}

// toStatus maps service errors to gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.ErrorKV(ctx, "Alarm service call failed", "error", err)

		return status.Error(codes.Internal, "internal error")
	}
}
