//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/alarmee/internal/api/grpc/alarm"
	"github.com/oshokin/alarmee/internal/config"
	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/eventbus"
)

// Client wraps the gRPC AlarmService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alarm server.
	conn *grpc.ClientConn
	// api is the AlarmService client interface.
	api api.AlarmServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errRequestRequired is returned when Schedule gets no request.
	errRequestRequired = errors.New("alarm request must be provided")
)

// Dial establishes a gRPC connection to the alarm server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewAlarmServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Schedule sends the request and returns the normalized trigger.
func (c *Client) Schedule(ctx context.Context, request *domain.Request) (*domain.Trigger, error) {
	if request == nil {
		return nil, errRequestRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Schedule(callCtx, &api.ScheduleRequest{Alarm: api.FromDomainRequest(request)})
	if err != nil {
		return nil, fmt.Errorf("schedule alarm: %w", err)
	}

	trigger, err := api.ToDomainTrigger(resp.Trigger)
	if err != nil {
		return nil, fmt.Errorf("decode trigger: %w", err)
	}

	return trigger, nil
}

// Cancel cancels the alarm with id.
func (c *Client) Cancel(ctx context.Context, id string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Cancel(callCtx, &api.CancelRequest{ID: id}); err != nil {
		return fmt.Errorf("cancel alarm: %w", err)
	}

	return nil
}

// CancelAll cancels every alarm and returns how many were removed.
func (c *Client) CancelAll(ctx context.Context) (int, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.CancelAll(callCtx, new(api.CancelAllRequest))
	if err != nil {
		return 0, fmt.Errorf("cancel all alarms: %w", err)
	}

	return resp.Cancelled, nil
}

// List returns the server's scheduled alarms.
func (c *Client) List(ctx context.Context) ([]*api.ScheduledAlarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.List(callCtx, new(api.ListRequest))
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	return resp.Alarms, nil
}

// ReportAction reports a notification action tap.
func (c *Client) ReportAction(ctx context.Context, alarmID, actionID string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.ReportAction(callCtx, &api.ReportActionRequest{AlarmID: alarmID, ActionID: actionID}); err != nil {
		return fmt.Errorf("report action: %w", err)
	}

	return nil
}

// ReportPushToken reports a refreshed push token.
func (c *Client) ReportPushToken(ctx context.Context, token string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.ReportPushToken(callCtx, &api.ReportPushTokenRequest{Token: token}); err != nil {
		return fmt.Errorf("report push token: %w", err)
	}

	return nil
}

// Watch opens the event stream. It is not bound by the call timeout;
// cancel ctx to stop watching.
func (c *Client) Watch(ctx context.Context, types ...eventbus.Type) (api.WatchClient, error) {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}

	stream, err := c.api.Watch(ctx, &api.WatchRequest{Types: names})
	if err != nil {
		return nil, fmt.Errorf("watch events: %w", err)
	}

	return stream, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
