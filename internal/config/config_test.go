package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarmee/internal/platform"
	"github.com/oshokin/alarmee/internal/repository/alarm"
	"github.com/oshokin/alarmee/internal/service/notification"
)

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings *Config
		wantErr  string
	}{
		{name: "nil", settings: nil, wantErr: "configuration is not set"},
		{name: "missing socket", settings: new(Config), wantErr: "server address must be provided"},
		{name: "bad socket", settings: &Config{ServerAddress: "bad:address"}, wantErr: "invalid server socket"},
		{
			name:     "bad log level",
			settings: &Config{ServerAddress: "127.0.0.1:0", LogLevel: "loud"},
			wantErr:  "unknown log level",
		},
		{
			name:     "bad log format",
			settings: &Config{ServerAddress: "127.0.0.1:0", LogFormat: "xml"},
			wantErr:  "unknown log format",
		},
		{
			name:     "bad platform",
			settings: &Config{ServerAddress: "127.0.0.1:0", Platform: "symbian"},
			wantErr:  "unknown platform",
		},
		{
			name:     "bad timezone",
			settings: &Config{ServerAddress: "127.0.0.1:0", DefaultTimezone: "Mars/Olympus"},
			wantErr:  "invalid default timezone",
		},
		{
			name:     "bad driver",
			settings: &Config{ServerAddress: "127.0.0.1:0", Store: Store{Driver: "postgres"}},
			wantErr:  "unknown storage driver",
		},
		{
			name:     "negative rate",
			settings: &Config{ServerAddress: "127.0.0.1:0", RateLimit: RateLimit{PerSecond: -1}},
			wantErr:  "rate limit must not be negative",
		},
		{
			name:     "bad metrics address",
			settings: &Config{ServerAddress: "127.0.0.1:0", MetricsAddress: "nowhere"},
			wantErr:  "invalid metrics address",
		},
		{name: "ok", settings: &Config{ServerAddress: "127.0.0.1:0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.settings)
			if tt.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	t.Parallel()

	settings := &Config{
		ServerAddress: "127.0.0.1:0",
		Platform:      " Android ",
		RateLimit:     RateLimit{PerSecond: 5},
	}

	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, platform.NameAndroid, settings.Platform)
	require.Equal(t, alarm.DriverFile, settings.Store.Driver)
	require.Equal(t, DefaultStoreFilename, settings.Store.Path)
	require.Equal(t, notification.DefaultFetchTimeout, settings.Images.Timeout)
	require.EqualValues(t, notification.DefaultMaxImageBytes, settings.Images.MaxBytes)
	require.Equal(t, 1, settings.RateLimit.Burst)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		ServerAddress:   "127.0.0.1:50051",
		LogLevel:        "debug",
		ExactAlarms:     true,
		DefaultTimezone: "Europe/Berlin",
		Store:           Store{Driver: alarm.DriverSQLite, Path: filepath.Join(dir, "alarms.db")},
		Notification:    notification.Defaults{Sound: "chime"},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "read settings")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("server_addr: ["), 0o600))

	_, err = Load(broken)
	require.ErrorContains(t, err, "unmarshal settings")
}

func TestSave_Nil(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil), errConfigIsNotSet)
}

func TestWatch_AppliesChanges(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, Save(path, &Config{ServerAddress: "127.0.0.1:0", LogLevel: "info"}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	applied := make(chan *Config, 4)
	done := make(chan error, 1)

	go func() {
		done <- Watch(ctx, path, func(cfg *Config) { applied <- cfg })
	}()

	// Keep rewriting until the watcher is registered and reports the change.
	require.Eventually(t, func() bool {
		if err := Save(path, &Config{ServerAddress: "127.0.0.1:0", LogLevel: "debug"}); err != nil {
			return false
		}

		select {
		case cfg := <-applied:
			return cfg.LogLevel == "debug"
		case <-time.After(2 * reloadDebounce):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
