package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarmee/internal/config"
	"github.com/oshokin/alarmee/internal/platform"
)

// freeAddress reserves and releases a loopback port.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// TestRun_ReleasesListenerWhenOpsFails verifies the gRPC port is free again after an ops startup failure.
func TestRun_ReleasesListenerWhenOpsFails(t *testing.T) {
	t.Parallel()

	// Occupy the ops address so serveOps cannot bind it.
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer func() {
		_ = busy.Close()
	}()

	grpcAddress := freeAddress(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "settings.yaml")

	require.NoError(t, config.Save(cfgPath, &config.Config{
		ServerAddress:  grpcAddress,
		Timeout:        time.Second,
		Platform:       platform.NameLocal,
		MetricsAddress: busy.Addr().String(),
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = Run(ctx, &Options{
		ConfigPath:    cfgPath,
		ListenAddress: grpcAddress,
		StorePath:     filepath.Join(dir, "alarms.json"),
	})
	require.Error(t, err)

	l, err := net.Listen("tcp", grpcAddress)
	require.NoError(t, err)
	require.NoError(t, l.Close())
}
