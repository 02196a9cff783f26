package alarm

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRequestValidate covers each invariant of Request.
func TestRequestValidate(t *testing.T) {
	t.Parallel()

	fireAt := LocalDateTime{Year: 2026, Month: time.March, Day: 1, Hour: 9}

	cases := []struct {
		name    string
		request *Request
		wantErr bool
	}{
		{name: "nil", request: nil, wantErr: true},
		{name: "missing id", request: &Request{FireAt: &fireAt}, wantErr: true},
		{name: "one-shot without fire_at", request: &Request{ID: "a"}, wantErr: true},
		{name: "one-shot", request: &Request{ID: "a", FireAt: &fireAt}},
		{name: "daily without fire_at", request: &Request{ID: "a", Repeat: RepeatDaily}},
		{name: "custom too short", request: &Request{ID: "a", Repeat: RepeatCustom, Every: 59 * time.Second}, wantErr: true},
		{name: "custom one minute", request: &Request{ID: "a", Repeat: RepeatCustom, Every: time.Minute}},
		{name: "unknown policy", request: &Request{ID: "a", Repeat: "fortnightly", FireAt: &fireAt}, wantErr: true},
		{name: "bad timezone", request: &Request{ID: "a", FireAt: &fireAt, Timezone: "Mars/Olympus"}, wantErr: true},
		{name: "named timezone", request: &Request{ID: "a", FireAt: &fireAt, Timezone: "Europe/Berlin"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.request.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)

				return
			}

			require.NoError(t, err)
		})
	}
}

// TestRequestClone ensures nested slices, maps and pointers are not shared.
func TestRequestClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Request)(nil).Clone())

	fireAt := LocalDateTime{Year: 2026, Month: time.January, Day: 2, Hour: 7}
	r := &Request{
		ID:      "wake",
		FireAt:  &fireAt,
		Actions: []Action{{ID: "snooze", Label: "Snooze"}},
		Options: Options{Data: map[string]string{"habit": "run"}},
	}

	c := r.Clone()
	require.Equal(t, r, c)
	require.NotSame(t, r.FireAt, c.FireAt)

	c.Actions[0].Label = "Later"
	c.Options.Data["habit"] = "read"

	require.Equal(t, "Snooze", r.Actions[0].Label)
	require.Equal(t, "run", r.Options.Data["habit"])
}

// TestLocalDateTimeText checks parsing variants and the JSON text form.
func TestLocalDateTimeText(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"2026-05-04T08:30:00", "2026-05-04T08:30", "2026-05-04 08:30"} {
		got, err := ParseLocalDateTime(in)
		require.NoError(t, err, in)
		require.Equal(t, LocalDateTime{Year: 2026, Month: time.May, Day: 4, Hour: 8, Minute: 30}, got)
	}

	_, err := ParseLocalDateTime("tomorrow")
	require.Error(t, err)

	data, err := json.Marshal(&Request{ID: "x", FireAt: &LocalDateTime{Year: 2026, Month: time.May, Day: 4, Hour: 8}})
	require.NoError(t, err)
	require.Contains(t, string(data), `"fire_at":"2026-05-04T08:00:00"`)

	var decoded Request
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, 8, decoded.FireAt.Hour)
}

// TestLocalDateTimeIn resolves a wall clock in a named zone.
func TestLocalDateTimeIn(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	at := LocalDateTime{Year: 2026, Month: time.July, Day: 1, Hour: 9}.In(loc)
	require.Equal(t, 13, at.UTC().Hour())
}
