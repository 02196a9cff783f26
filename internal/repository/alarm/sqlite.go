package alarm

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver.

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

//go:embed migrations.sql
var migrations string

// busyTimeout bounds how long a writer waits for the database lock.
const busyTimeout = 5 * time.Second

// SQLiteRepository persists alarm records in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err = db.ExecContext(ctx, migrations); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Get returns the record for id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT request, trigger, updated_at FROM alarms WHERE id = ?`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	return record, err
}

// List returns every record ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT request, trigger, updated_at FROM alarms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query alarms: %w", err)
	}
	defer rows.Close()

	var records []*domain.Record

	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}

	return records, nil
}

// Save inserts or replaces the record keyed by its request id.
func (r *SQLiteRepository) Save(ctx context.Context, record *domain.Record) error {
	if record == nil || record.Request == nil {
		return fmt.Errorf("%w: record without request", domain.ErrInvalidRequest)
	}

	request, err := json.Marshal(record.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	var trigger sql.NullString

	if record.Trigger != nil {
		encoded, encodeErr := json.Marshal(record.Trigger)
		if encodeErr != nil {
			return fmt.Errorf("encode trigger: %w", encodeErr)
		}

		trigger = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO alarms(id, request, trigger, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET request=excluded.request, trigger=excluded.trigger, updated_at=excluded.updated_at`,
		record.Request.ID, string(request), trigger, record.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save alarm %s: %w", record.Request.ID, err)
	}

	return nil
}

// Delete removes the record for id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete alarm %s: %w", id, err)
	}

	return nil
}

// DeleteAll removes every record.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM alarms`); err != nil {
		return fmt.Errorf("delete alarms: %w", err)
	}

	return nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}

	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.Record, error) {
	var (
		request   string
		trigger   sql.NullString
		updatedAt int64
	)

	if err := row.Scan(&request, &trigger, &updatedAt); err != nil {
		return nil, err
	}

	record := &domain.Record{UpdatedAt: time.UnixMilli(updatedAt).UTC()}

	if err := json.Unmarshal([]byte(request), &record.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	if trigger.Valid {
		if err := json.Unmarshal([]byte(trigger.String), &record.Trigger); err != nil {
			return nil, fmt.Errorf("decode trigger: %w", err)
		}
	}

	return record, nil
}
