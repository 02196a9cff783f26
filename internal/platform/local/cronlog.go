package local

import (
	"context"

	"github.com/oshokin/alarmee/internal/logger"
)

// cronLogger adapts the context logger to cron.Logger.
type cronLogger struct {
	ctx context.Context //nolint:containedctx // cron.Logger has no context parameter.
}

func newCronLogger(ctx context.Context) *cronLogger {
	return &cronLogger{ctx: ctx}
}

// Info logs cron bookkeeping at debug level; it is chatty.
func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	logger.DebugKV(l.ctx, msg, keysAndValues...)
}

// Error logs job panics and scheduling errors.
func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.ErrorKV(l.ctx, msg, append(keysAndValues, "error", err)...)
}
