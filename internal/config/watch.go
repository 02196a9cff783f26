package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/alarmee/internal/logger"
)

// reloadDebounce coalesces the burst of events editors emit per save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the settings file whenever it changes and passes every valid
// revision to apply. Invalid revisions are logged and skipped.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, apply func(*Config)) error {
	if path == "" {
		path = DefaultConfigFilename
	}

	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}

	//nolint:errcheck // Closing the watcher on shutdown has nothing to report.
	defer watcher.Close()

	// Editors replace files by rename, so the directory is watched instead of the file.
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch settings directory: %w", err)
	}

	ctx = logger.WithKV(logger.WithName(ctx, "config-watch"), "path", path)

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != path ||
				!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			timer.Reset(reloadDebounce)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			if errors.Is(watchErr, fsnotify.ErrEventOverflow) {
				timer.Reset(reloadDebounce)
			}

			logger.WarnKV(ctx, "Settings watcher error", "error", watchErr)
		case <-timer.C:
			cfg, loadErr := Load(path)
			if loadErr != nil {
				logger.WarnKV(ctx, "Ignoring invalid settings", "error", loadErr)

				continue
			}

			logger.Debug(ctx, "Settings reloaded")
			apply(cfg)
		}
	}
}

// ApplyLogLevel is a Watch callback that switches the global log level.
func ApplyLogLevel(ctx context.Context) func(*Config) {
	return func(cfg *Config) {
		level, _ := logger.ParseLogLevel(cfg.LogLevel)
		if level == logger.Level() {
			return
		}

		logger.SetLevel(level)
		logger.InfoKV(ctx, "Log level changed", "level", level.String())
	}
}
