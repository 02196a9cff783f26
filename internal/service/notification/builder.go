package notification

import (
	"context"
	"maps"
	"strings"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
	"github.com/oshokin/alarmee/internal/logger"
)

// Fetcher downloads image bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Defaults are applied when the request leaves a field empty.
type Defaults struct {
	Icon    string `yaml:"icon"`
	Color   string `yaml:"color"`
	Sound   string `yaml:"sound"`
	Channel string `yaml:"channel"`
}

// Builder assembles notifications.
type Builder struct {
	// fetcher downloads images; nil disables downloads.
	fetcher Fetcher
	// defaults fill empty presentation fields.
	defaults Defaults
}

// Option configures a Builder.
type Option func(*Builder)

// WithFetcher enables image downloads.
func WithFetcher(f Fetcher) Option {
	return func(b *Builder) {
		b.fetcher = f
	}
}

// WithDefaults sets presentation defaults.
func WithDefaults(d Defaults) Option {
	return func(b *Builder) {
		b.defaults = d
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := new(Builder)

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build returns the notification for request. It never fails: a missing or
// broken image is dropped and logged.
func (b *Builder) Build(ctx context.Context, request *domain.Request) *domain.Notification {
	options := request.Options

	n := &domain.Notification{
		ID:       request.ID,
		Title:    request.Title,
		Body:     request.Body,
		Icon:     firstNonEmpty(options.Icon, b.defaults.Icon),
		Color:    firstNonEmpty(options.Color, b.defaults.Color),
		Sound:    firstNonEmpty(options.Sound, b.defaults.Sound),
		ImageURL: strings.TrimSpace(options.ImageURL),
		DeepLink: options.DeepLink,
		Channel:  firstNonEmpty(options.Channel, b.defaults.Channel),
		Actions:  capActions(ctx, request.ID, request.Actions),
		Data:     maps.Clone(options.Data),
	}

	if n.ImageURL == "" || b.fetcher == nil {
		return n
	}

	image, err := b.fetcher.Fetch(ctx, n.ImageURL)
	if err != nil {
		logger.WarnKV(ctx, "Notification image unavailable, posting without it",
			"alarm_id", request.ID, "image_url", n.ImageURL, "error", err)

		return n
	}

	n.Image = image

	return n
}

// capActions keeps the first MaxActions actions that have an id.
func capActions(ctx context.Context, alarmID string, actions []domain.Action) []domain.Action {
	if len(actions) == 0 {
		return nil
	}

	result := make([]domain.Action, 0, min(len(actions), domain.MaxActions))

	for _, action := range actions {
		if strings.TrimSpace(action.ID) == "" {
			continue
		}

		if len(result) == domain.MaxActions {
			logger.DebugKV(ctx, "Dropping extra notification actions",
				"alarm_id", alarmID, "limit", domain.MaxActions, "requested", len(actions))

			break
		}

		if action.Label == "" {
			action.Label = action.ID
		}

		result = append(result, action)
	}

	return result
}

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
