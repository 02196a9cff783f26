// Package platform defines the contract between the scheduling core and an
// OS alarm/notification service.
//
// Implementations live in subpackages (android, ios, local) and are picked
// when the application is composed; the core only sees Adapter.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

// Names of the shipped adapters.
const (
	NameAndroid = "android"
	NameIOS     = "ios"
	NameLocal   = "local"
)

// ErrUnknownPlatform is returned by ParseName for unsupported names.
var ErrUnknownPlatform = errors.New("unknown platform")

// Adapter hands normalized triggers to an OS scheduler.
//
// Cancel of an id that was never scheduled is a no-op. CancelAll may remove
// more than this library's alarms where the OS offers no finer control.
type Adapter interface {
	Name() string
	Schedule(ctx context.Context, trigger *domain.Trigger, notification *domain.Notification) error
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
}

// FireHandler is invoked when an adapter posts an alarm itself.
type FireHandler func(ctx context.Context, trigger *domain.Trigger, notification *domain.Notification)

// ActionHandler is invoked when the user taps a notification action.
type ActionHandler func(ctx context.Context, alarmID, actionID string)

// DegradeHandler is invoked when an adapter falls back to a less precise mode.
type DegradeHandler func(ctx context.Context, alarmID, reason string)

// ParseName normalizes an adapter name from configuration.
func ParseName(s string) (string, error) {
	switch name := strings.ToLower(strings.TrimSpace(s)); name {
	case "":
		return NameLocal, nil
	case NameAndroid, NameIOS, NameLocal:
		return name, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
}
