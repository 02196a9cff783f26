package alarm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

func openDrivers(t *testing.T) map[string]Repository {
	t.Helper()

	dir := t.TempDir()
	ctx := context.Background()

	file, err := Open(ctx, DriverFile, filepath.Join(dir, "alarms.json"))
	require.NoError(t, err)

	db, err := Open(ctx, DriverSQLite, filepath.Join(dir, "alarms.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, file.Close())
		require.NoError(t, db.Close())
	})

	return map[string]Repository{DriverFile: file, DriverSQLite: db}
}

func sampleRecord(id string) *domain.Record {
	fireAt := domain.LocalDateTime{Year: 2026, Month: time.March, Day: 2, Hour: 9}
	loc, _ := time.LoadLocation("Europe/Berlin")

	return &domain.Record{
		Request: &domain.Request{
			ID:       id,
			Title:    "Stretch",
			Body:     "Stand up",
			FireAt:   &fireAt,
			Timezone: "Europe/Berlin",
			Repeat:   domain.RepeatWeekly,
			Actions:  []domain.Action{{ID: "done", Label: "Done"}},
			Options:  domain.Options{Sound: "chime", Data: map[string]string{"habit": "7"}},
		},
		Trigger: &domain.Trigger{
			ID:       id,
			Kind:     domain.TriggerCalendar,
			At:       fireAt.In(loc),
			Repeat:   domain.RepeatWeekly,
			Timezone: "Europe/Berlin",
			Match: domain.CalendarMatch{
				domain.FieldWeekday: int(time.Monday),
				domain.FieldHour:    9,
				domain.FieldMinute:  0,
				domain.FieldSecond:  0,
			},
		},
		UpdatedAt: time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRepository_SaveGetList(t *testing.T) {
	t.Parallel()

	for name, repo := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, repo.Save(ctx, sampleRecord("b")))
			require.NoError(t, repo.Save(ctx, sampleRecord("a")))

			got, err := repo.Get(ctx, "a")
			require.NoError(t, err)
			require.Equal(t, "Stretch", got.Request.Title)
			require.Equal(t, domain.RepeatWeekly, got.Request.Repeat)
			require.Equal(t, "2026-03-02T09:00:00", got.Request.FireAt.String())
			require.Equal(t, domain.TriggerCalendar, got.Trigger.Kind)
			require.Equal(t, int(time.Monday), got.Trigger.Match[domain.FieldWeekday])
			require.True(t, sampleRecord("a").Trigger.At.Equal(got.Trigger.At))
			require.True(t, sampleRecord("a").UpdatedAt.Equal(got.UpdatedAt))

			list, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			require.Equal(t, "a", list[0].Request.ID)
			require.Equal(t, "b", list[1].Request.ID)
		})
	}
}

func TestRepository_SaveReplaces(t *testing.T) {
	t.Parallel()

	for name, repo := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			record := sampleRecord("a")
			require.NoError(t, repo.Save(ctx, record))

			record.Request.Title = "Walk"
			record.Trigger = nil
			require.NoError(t, repo.Save(ctx, record))

			got, err := repo.Get(ctx, "a")
			require.NoError(t, err)
			require.Equal(t, "Walk", got.Request.Title)
			require.Nil(t, got.Trigger)
		})
	}
}

func TestRepository_Delete(t *testing.T) {
	t.Parallel()

	for name, repo := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, repo.Save(ctx, sampleRecord("a")))
			require.NoError(t, repo.Save(ctx, sampleRecord("b")))

			require.NoError(t, repo.Delete(ctx, "a"))
			require.NoError(t, repo.Delete(ctx, "never-saved"))

			_, err := repo.Get(ctx, "a")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, repo.DeleteAll(ctx))

			list, err := repo.List(ctx)
			require.NoError(t, err)
			require.Empty(t, list)
		})
	}
}

func TestRepository_SaveRejectsEmptyRecord(t *testing.T) {
	t.Parallel()

	for name, repo := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			err := repo.Save(context.Background(), &domain.Record{})
			require.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestFileRepository_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "alarms.json")
	ctx := context.Background()

	require.NoError(t, NewFileRepository(path).Save(ctx, sampleRecord("a")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(filePermissions), info.Mode().Perm())

	got, err := NewFileRepository(path).Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "Stretch", got.Request.Title)
}

func TestFileRepository_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alarms.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileRepository(path).List(context.Background())
	require.ErrorContains(t, err, "decode alarm file")
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "postgres", "x")
	require.ErrorIs(t, err, ErrUnknownDriver)
}
