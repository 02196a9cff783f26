package alarm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

const (
	// DriverFile selects FileRepository.
	DriverFile = "file"
	// DriverSQLite selects SQLiteRepository.
	DriverSQLite = "sqlite"
)

var (
	// ErrNotFound is returned when no record exists for an id.
	ErrNotFound = errors.New("alarm not found")
	// ErrUnknownDriver is returned by Open for unsupported drivers.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Repository defines persistence operations for alarm records.
type Repository interface {
	Get(ctx context.Context, id string) (*domain.Record, error)
	List(ctx context.Context) ([]*domain.Record, error)
	Save(ctx context.Context, record *domain.Record) error
	// Delete removes id; deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Close() error
}

// Open creates the repository for driver at path.
func Open(ctx context.Context, driver, path string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverFile, "":
		return NewFileRepository(path), nil
	case DriverSQLite, "sqlite3":
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
