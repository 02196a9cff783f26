package alarm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/alarmee/internal/logger"
)

// RateLimitInterceptor rejects unary calls beyond perSecond with ResourceExhausted.
// A non-positive perSecond disables limiting.
func RateLimitInterceptor(perSecond float64, burst int) grpc.UnaryServerInterceptor {
	if perSecond <= 0 {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			return handler(ctx, req)
		}
	}

	limiter := rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !limiter.Allow() {
			logger.WarnKV(ctx, "Rate limit exceeded", "method", info.FullMethod)

			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor attaches a per-call logger and logs call outcomes at debug level.
func LoggingInterceptor(ctx context.Context) grpc.UnaryServerInterceptor {
	base := logger.FromContext(ctx)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.ToContext(ctx, base.With("method", info.FullMethod))
		started := time.Now()

		resp, err := handler(ctx, req)

		logger.DebugKV(ctx, "RPC finished",
			"code", status.Code(err).String(),
			"duration", time.Since(started))

		return resp, err
	}
}
