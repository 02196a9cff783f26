package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal verifies that an empty context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithFields_AttachesKeyValues checks that fields stored in the context reach the output.
func TestWithFields_AttachesKeyValues(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "scheduler")
	ctx = WithKV(ctx, "alarm_id", "morning")
	ctx = WithFields(ctx, "platform", "local")

	InfoKV(ctx, "Alarm scheduled", "kind", "calendar")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "scheduler", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	require.Equal(t, "morning", fields["alarm_id"])
	require.Equal(t, "local", fields["platform"])
	require.Equal(t, "calendar", fields["kind"])
}
