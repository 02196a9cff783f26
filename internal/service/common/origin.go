//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/google/uuid"
)

// OriginDataKey is the notification data key carrying who scheduled an alarm.
const OriginDataKey = "origin"

// DetectOrigin returns "user@host" for the current process, for audit trails.
func DetectOrigin() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	return currentUser.Username + "@" + hostname, nil
}

// AlarmID returns id trimmed, or a fresh random UUID when id is blank.
func AlarmID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}

	return uuid.NewString()
}
