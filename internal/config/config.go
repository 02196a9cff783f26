package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarmee/internal/logger"
	"github.com/oshokin/alarmee/internal/platform"
	"github.com/oshokin/alarmee/internal/repository/alarm"
	"github.com/oshokin/alarmee/internal/service/notification"
)

// Config holds the settings shared by the alarmee binaries.
type Config struct {
	// ServerAddress is the gRPC server address for alarm service connections.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the duration for RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is reloaded while the server runs.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format"`
	// Platform selects the alarm adapter: local, android or ios.
	Platform string `yaml:"platform"`
	// ExactAlarms lets requests opt into exact scheduling where the OS allows it.
	ExactAlarms bool `yaml:"exact_alarms"`
	// DefaultTimezone applies to requests that carry no timezone.
	DefaultTimezone string `yaml:"default_timezone"`
	// Store configures persistence of alarm records.
	Store Store `yaml:"store"`
	// Images bounds notification image downloads.
	Images Images `yaml:"images"`
	// Notification holds payload defaults.
	Notification notification.Defaults `yaml:"notification"`
	// MetricsAddress serves /metrics when set.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// RateLimit bounds unary RPCs per second; zero disables the limiter.
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Store selects the repository driver.
type Store struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Images bounds notification image downloads.
type Images struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// RateLimit configures the token bucket in front of unary RPCs.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarmee-settings.yaml"

	// DefaultStoreFilename is the default path of the file repository.
	DefaultStoreFilename = "alarmee-alarms.json"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}

	if _, ok := logger.ParseFormat(settings.LogFormat); !ok {
		return fmt.Errorf("unknown log format %q", settings.LogFormat)
	}

	name, err := platform.ParseName(settings.Platform)
	if err != nil {
		return err
	}

	settings.Platform = name

	if settings.DefaultTimezone != "" {
		if _, err = time.LoadLocation(settings.DefaultTimezone); err != nil {
			return fmt.Errorf("invalid default timezone: %w", err)
		}
	}

	if err = validateStore(&settings.Store); err != nil {
		return err
	}

	if settings.Images.Timeout <= 0 {
		settings.Images.Timeout = notification.DefaultFetchTimeout
	}

	if settings.Images.MaxBytes <= 0 {
		settings.Images.MaxBytes = notification.DefaultMaxImageBytes
	}

	if settings.MetricsAddress != "" {
		if _, err = net.ResolveTCPAddr("tcp", settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	if settings.RateLimit.PerSecond < 0 || settings.RateLimit.Burst < 0 {
		return errors.New("rate limit must not be negative")
	}

	if settings.RateLimit.PerSecond > 0 && settings.RateLimit.Burst == 0 {
		settings.RateLimit.Burst = 1
	}

	return nil
}

func validateStore(store *Store) error {
	switch store.Driver {
	case "":
		store.Driver = alarm.DriverFile
	case alarm.DriverFile, alarm.DriverSQLite:
	default:
		return fmt.Errorf("%w: %q", alarm.ErrUnknownDriver, store.Driver)
	}

	if store.Path == "" {
		store.Path = DefaultStoreFilename
	}

	return nil
}
