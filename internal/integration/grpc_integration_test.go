package integration

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarmee/internal/config"
	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/eventbus"
	"github.com/oshokin/alarmee/internal/platform"
	"github.com/oshokin/alarmee/internal/service/common"
	"github.com/oshokin/alarmee/internal/service/server"
)

// startGRPC starts the server on the local platform with a temporary config.
// Returns a stop function to gracefully shutdown the server.
func startGRPC(t *testing.T, addr, driver, storePath string) (stop func()) {
	t.Helper()

	// Create cancellable context for server lifecycle.
	ctx, cancel := context.WithCancel(context.Background())
	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")

	// Create temporary configuration file.
	require.NoError(
		t,
		config.Save(cfgPath, &config.Config{
			ServerAddress: addr,
			Timeout:       5 * time.Second,
			Platform:      platform.NameLocal,
			Store:         config.Store{Driver: driver},
		}),
	)

	done := make(chan struct{})

	// Start server in background goroutine.
	go func() {
		defer close(done)

		options := &server.Options{
			ConfigPath: cfgPath,
			StorePath:  storePath,
		}

		_ = server.Run(ctx, options) //nolint:errcheck // Failures surface as dial or call errors below.
	}()

	// Wait until the server accepts connections.
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}

		_ = conn.Close()

		return true
	}, 3*time.Second, 20*time.Millisecond)

	return func() {
		cancel()

		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("server did not stop")
		}
	}
}

// reserveAddress returns a free loopback address.
func reserveAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// TestGRPC_Roundtrip starts the real server and exercises schedule, list and cancel with on-disk persistence.
func TestGRPC_Roundtrip(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()

			addr := reserveAddress(t)
			storePath := filepath.Join(t.TempDir(), "alarms."+driver)

			stop := startGRPC(t, addr, driver, storePath)
			defer stop()

			ctx := context.Background()

			// Connect to the test server with timeout.
			c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
			require.NoError(t, err)

			defer func() {
				_ = c.Close()
			}()

			yesterday := domain.LocalDateTimeOf(time.Now().UTC().AddDate(0, 0, -1))

			trigger, err := c.Schedule(ctx, &domain.Request{
				ID:     "standup",
				Title:  "Standup",
				FireAt: &yesterday,
				Repeat: domain.RepeatDaily,
			})
			require.NoError(t, err)
			require.Equal(t, "standup", trigger.ID)
			require.True(t, trigger.At.After(time.Now()))

			alarms, err := c.List(ctx)
			require.NoError(t, err)
			require.Len(t, alarms, 1)
			require.Equal(t, "Standup", alarms[0].Alarm.Title)
			require.NotNil(t, alarms[0].Next)

			// Verify the record was persisted to disk.
			_, err = os.Stat(storePath)
			require.NoError(t, err)

			require.NoError(t, c.Cancel(ctx, "standup"))
			require.NoError(t, c.Cancel(ctx, "never-scheduled"))

			alarms, err = c.List(ctx)
			require.NoError(t, err)
			require.Empty(t, alarms)
		})
	}
}

// TestGRPC_RescheduleOnRestart verifies that alarms survive a server restart.
func TestGRPC_RescheduleOnRestart(t *testing.T) {
	t.Parallel()

	addr := reserveAddress(t)
	storePath := filepath.Join(t.TempDir(), "alarms.json")
	ctx := context.Background()

	stop := startGRPC(t, addr, "file", storePath)

	c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	_, err = c.Schedule(ctx, &domain.Request{
		ID:     "water",
		Title:  "Water the plants",
		Repeat: domain.RepeatCustom,
		Every:  2 * time.Hour,
	})
	require.NoError(t, err)

	_ = c.Close()

	stop()

	stop = startGRPC(t, addr, "file", storePath)
	defer stop()

	c, err = common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	alarms, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	require.Equal(t, "water", alarms[0].Alarm.ID)

	count, err := c.CancelAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// TestGRPC_WatchActions streams reported actions back to a watcher.
func TestGRPC_WatchActions(t *testing.T) {
	t.Parallel()

	addr := reserveAddress(t)

	stop := startGRPC(t, addr, "file", filepath.Join(t.TempDir(), "alarms.json"))
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	stream, err := c.Watch(ctx, eventbus.TypeNotificationAction)
	require.NoError(t, err)

	events := make(chan *eventbus.Event, 1)

	go func() {
		event, recvErr := stream.Recv()
		if recvErr == nil {
			events <- event
		}
	}()

	// The subscription is registered asynchronously, so report until it is observed.
	var got *eventbus.Event

	require.Eventually(t, func() bool {
		require.NoError(t, c.ReportAction(ctx, "standup", "snooze"))

		select {
		case got = <-events:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	require.Equal(t, eventbus.TypeNotificationAction, got.Type)
	require.Equal(t, "standup", got.AlarmID)
	require.Equal(t, "snooze", got.ActionID)
}
