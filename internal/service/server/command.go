package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarmee/internal/api/grpc/alarm"
	"github.com/oshokin/alarmee/internal/api/http/ops"
	"github.com/oshokin/alarmee/internal/config"
	"github.com/oshokin/alarmee/internal/eventbus"
	"github.com/oshokin/alarmee/internal/logger"
	"github.com/oshokin/alarmee/internal/metrics"
	"github.com/oshokin/alarmee/internal/platform"
	"github.com/oshokin/alarmee/internal/platform/android"
	"github.com/oshokin/alarmee/internal/platform/ios"
	"github.com/oshokin/alarmee/internal/platform/local"
	repository "github.com/oshokin/alarmee/internal/repository/alarm"
	"github.com/oshokin/alarmee/internal/service/notification"
	"github.com/oshokin/alarmee/internal/service/schedule"
	"github.com/oshokin/alarmee/internal/version"
)

// shutdownTimeout bounds the ops HTTP server shutdown.
const shutdownTimeout = 5 * time.Second

// Options controls the alarmee-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StorePath overrides the repository path from settings.
	StorePath string
	// Android holds host bindings when the platform is android.
	Android *AndroidHost
	// IOS holds the host binding when the platform is ios.
	IOS ios.NotificationCenter
	// Clock overrides the scheduling clock; tests only.
	Clock schedule.Clock
}

// AndroidHost groups the Android system service bindings.
type AndroidHost struct {
	Alarms        android.AlarmManager
	Notifications android.NotificationManager
}

var (
	// ErrNoServerAddress indicates missing server configuration.
	ErrNoServerAddress = errors.New("no server address configured")
	// ErrMissingHost indicates a mobile platform without its host bindings.
	ErrMissingHost = errors.New("platform host bindings are not provided")
)

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarmee-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.Configure(settings.LogLevel, settings.LogFormat); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	storePath := settings.Store.Path
	if opts.StorePath != "" {
		storePath = opts.StorePath
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repo, err := repository.Open(ctx, settings.Store.Driver, storePath)
	if err != nil {
		return fmt.Errorf("open %s store: %w", settings.Store.Driver, err)
	}

	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close store", "error", closeErr)
		}
	}()

	counters := metrics.New()
	bus := eventbus.New()

	svc := newService(serviceOptions{
		Normalizer: schedule.NewNormalizer(schedule.WithClock(opts.Clock)),
		Builder: notification.NewBuilder(
			notification.WithFetcher(notification.NewHTTPFetcher(settings.Images.Timeout, settings.Images.MaxBytes)),
			notification.WithDefaults(settings.Notification),
		),
		Repository:      repo,
		Events:          bus,
		Metrics:         counters,
		AllowExact:      settings.ExactAlarms,
		DefaultTimezone: settings.DefaultTimezone,
	})

	adapter, stopAdapter, err := newAdapter(ctx, settings.Platform, opts, svc)
	if err != nil {
		return fmt.Errorf("initialise %s platform: %w", settings.Platform, err)
	}

	defer stopAdapter()

	svc.attach(adapter)

	if _, err = svc.Reschedule(ctx); err != nil {
		return fmt.Errorf("restore alarms: %w", err)
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Create and configure gRPC server with alarm service.
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		api.LoggingInterceptor(ctx),
		api.RateLimitInterceptor(settings.RateLimit.PerSecond, settings.RateLimit.Burst),
	))
	api.RegisterAlarmServiceServer(grpcServer, api.NewServer(svc, bus))

	stopOps, err := serveOps(ctx, settings, svc, counters)
	if err != nil {
		grpcServer.Stop()

		// Serve never took ownership of the listener.
		if closeErr := lis.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close gRPC listener", "error", closeErr)
		}

		return err
	}

	defer stopOps()

	go func() {
		if watchErr := config.Watch(ctx, opts.ConfigPath, config.ApplyLogLevel(ctx)); watchErr != nil {
			logger.WarnKV(ctx, "Settings hot reload disabled", "error", watchErr)
		}
	}()

	logger.InfoKV(ctx, "Alarm server listening",
		"listen_address", listenAddress,
		"platform", adapter.Name(),
		"store", settings.Store.Driver,
		"store_path", storePath)

	notifySystemd(ctx, daemon.SdNotifyReady)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		notifySystemd(ctx, daemon.SdNotifyStopping)
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// newAdapter composes the configured platform adapter around svc.
func newAdapter(
	ctx context.Context,
	name string,
	opts *Options,
	svc *service,
) (platform.Adapter, func(), error) {
	noop := func() {}

	switch name {
	case platform.NameAndroid:
		if opts.Android == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingHost, name)
		}

		adapter, err := android.New(opts.Android.Alarms, opts.Android.Notifications,
			android.WithClock(svc.normalizer.Now),
			android.WithDegradeHandler(svc.onDegrade),
			android.WithActionHandler(svc.onAction),
			android.WithFireHandler(svc.fire),
		)
		if err != nil {
			return nil, nil, err
		}

		return adapter, noop, nil
	case platform.NameIOS:
		if opts.IOS == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingHost, name)
		}

		adapter, err := ios.New(opts.IOS,
			ios.WithClock(svc.normalizer.Now),
			ios.WithDegradeHandler(svc.onDegrade),
			ios.WithActionHandler(svc.onAction),
		)
		if err != nil {
			return nil, nil, err
		}

		return adapter, noop, nil
	default:
		adapter, err := local.New(ctx, svc.fire)
		if err != nil {
			return nil, nil, err
		}

		adapter.Start()

		return adapter, adapter.Stop, nil
	}
}

// serveOps starts the metrics/health/calendar HTTP server when configured.
func serveOps(ctx context.Context, settings *config.Config, svc *service, counters *metrics.Metrics) (func(), error) {
	if settings.MetricsAddress == "" {
		return func() {}, nil
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", settings.MetricsAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", settings.MetricsAddress, err)
	}

	server := &http.Server{
		Handler: ops.NewRouter(ops.Options{
			Metrics: counters.Handler(),
			Alarms:  svc,
			Health:  ops.Health{Status: "ok", Platform: settings.Platform, Version: version.Version},
			Now:     svc.normalizer.Now,
		}),
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := server.Serve(lis); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Ops server failed", "error", serveErr)
		}
	}()

	logger.InfoKV(ctx, "Ops server listening", "address", lis.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.WarnKV(ctx, "Ops server shutdown failed", "error", shutdownErr)
		}
	}, nil
}

// notifySystemd reports lifecycle state when running under systemd.
func notifySystemd(ctx context.Context, state string) {
	sent, err := daemon.SdNotify(false, state)

	switch {
	case err != nil:
		logger.WarnKV(ctx, "Failed to notify systemd", "state", state, "error", err)
	case sent:
		logger.DebugKV(ctx, "Notified systemd", "state", state)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
