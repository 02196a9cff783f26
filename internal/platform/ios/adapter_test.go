package ios

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

var errTestAuth = errors.New("test authorization error")

// fakeCenter records notification center calls.
type fakeCenter struct {
	granted    bool
	authErr    error
	added      []*Request
	categories []Category
	removed    []string
	removedAll int
}

func (f *fakeCenter) RequestAuthorization(context.Context, ...AuthorizationOption) (bool, error) {
	return f.granted, f.authErr
}

func (f *fakeCenter) SetCategory(c Category) { f.categories = append(f.categories, c) }

func (f *fakeCenter) Add(_ context.Context, r *Request) error {
	f.added = append(f.added, r)

	return nil
}

func (f *fakeCenter) RemovePendingRequests(ids ...string) { f.removed = append(f.removed, ids...) }

func (f *fakeCenter) RemoveAllPendingRequests() { f.removedAll++ }

// TestSchedule_PermissionDeniedIsNoop verifies the silent no-op on denied or failed authorization.
func TestSchedule_PermissionDeniedIsNoop(t *testing.T) {
	t.Parallel()

	for _, center := range []*fakeCenter{{granted: false}, {authErr: errTestAuth}} {
		var degraded []string

		a, err := New(center, WithDegradeHandler(func(_ context.Context, alarmID, _ string) {
			degraded = append(degraded, alarmID)
		}))
		require.NoError(t, err)

		trigger := &domain.Trigger{ID: "a", Kind: domain.TriggerAbsolute, At: time.Now().Add(time.Hour)}
		require.NoError(t, a.Schedule(context.Background(), trigger, &domain.Notification{ID: "a"}))
		require.Empty(t, center.added)

		if !center.granted && center.authErr == nil {
			require.Equal(t, []string{"a"}, degraded)
		}
	}
}

// TestSchedule_CalendarTrigger converts a weekly match into repeating date components.
func TestSchedule_CalendarTrigger(t *testing.T) {
	t.Parallel()

	center := &fakeCenter{granted: true}
	a, err := New(center)
	require.NoError(t, err)

	trigger := &domain.Trigger{
		ID:       "gym",
		Kind:     domain.TriggerCalendar,
		At:       time.Date(2026, time.October, 19, 7, 30, 0, 0, time.UTC),
		Repeat:   domain.RepeatWeekly,
		Timezone: "UTC",
		Match: domain.CalendarMatch{
			domain.FieldWeekday: int(time.Monday),
			domain.FieldHour:    7,
			domain.FieldMinute:  30,
			domain.FieldSecond:  0,
		},
	}

	n := &domain.Notification{
		ID:      "gym",
		Title:   "Gym",
		Actions: []domain.Action{{ID: "done", Label: "Done"}},
		Image:   []byte("png"),
	}
	require.NoError(t, a.Schedule(context.Background(), trigger, n))

	require.Len(t, center.added, 1)
	request := center.added[0]
	require.Equal(t, "gym", request.Identifier)

	calendar, ok := request.Trigger.(*CalendarTrigger)
	require.True(t, ok)
	require.True(t, calendar.Repeats)
	require.Equal(t, 2, calendar.Components.Weekday)
	require.Equal(t, 7, calendar.Components.Hour)
	require.Equal(t, 30, calendar.Components.Minute)
	require.Equal(t, Undefined, calendar.Components.Day)
	require.Equal(t, Undefined, calendar.Components.Year)

	require.Equal(t, "alarmee.gym", request.Content.CategoryIdentifier)
	require.Len(t, center.categories, 1)
	require.Equal(t, "done", center.categories[0].Actions[0].Identifier)
	require.Len(t, request.Content.Attachments, 1)
	require.Equal(t, "gym", request.Content.UserInfo[userInfoAlarmID])
}

// TestSchedule_AbsoluteAndInterval covers the one-shot and time-interval mappings.
func TestSchedule_AbsoluteAndInterval(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)
	center := &fakeCenter{granted: true}
	a, err := New(center, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	once := &domain.Trigger{ID: "once", Kind: domain.TriggerAbsolute, At: now.Add(26 * time.Hour), Timezone: "UTC"}
	require.NoError(t, a.Schedule(context.Background(), once, &domain.Notification{ID: "once"}))

	calendar, ok := center.added[0].Trigger.(*CalendarTrigger)
	require.True(t, ok)
	require.False(t, calendar.Repeats)
	require.Equal(t, DateComponents{
		Year: 2026, Month: 10, Day: 15, Weekday: Undefined, Hour: 12, Minute: 0, Second: 0, TimeZone: "UTC",
	}, calendar.Components)

	every := &domain.Trigger{ID: "every", Kind: domain.TriggerInterval, At: now.Add(time.Hour), Every: time.Hour}
	require.NoError(t, a.Schedule(context.Background(), every, &domain.Notification{ID: "every"}))

	interval, ok := center.added[1].Trigger.(*TimeIntervalTrigger)
	require.True(t, ok)
	require.True(t, interval.Repeats)
	require.Equal(t, time.Hour, interval.Interval)

	short := &domain.Trigger{ID: "short", Kind: domain.TriggerInterval, At: now, Every: time.Second}
	require.Error(t, a.Schedule(context.Background(), short, &domain.Notification{ID: "short"}))
}

// TestCancel covers cancel by id, unknown ids and cancel all.
func TestCancel(t *testing.T) {
	t.Parallel()

	center := &fakeCenter{granted: true}
	a, err := New(center)
	require.NoError(t, err)

	require.NoError(t, a.Cancel(context.Background(), "never-scheduled"))
	require.NoError(t, a.CancelAll(context.Background()))

	require.Equal(t, []string{"never-scheduled"}, center.removed)
	require.Equal(t, 1, center.removedAll)
}

// TestHandleResponse reports custom actions and ignores system ones.
func TestHandleResponse(t *testing.T) {
	t.Parallel()

	var got []string

	a, err := New(new(fakeCenter), WithActionHandler(func(_ context.Context, alarmID, actionID string) {
		got = append(got, alarmID+"/"+actionID)
	}))
	require.NoError(t, err)

	a.HandleResponse(context.Background(), Response{RequestIdentifier: "gym", ActionIdentifier: DefaultActionIdentifier})
	a.HandleResponse(context.Background(), Response{RequestIdentifier: "gym", ActionIdentifier: "done"})
	a.HandleResponse(context.Background(), Response{
		RequestIdentifier: "other",
		ActionIdentifier:  "skip",
		UserInfo:          map[string]string{userInfoAlarmID: "water"},
	})

	require.Equal(t, []string{"gym/done", "water/skip"}, got)
}
