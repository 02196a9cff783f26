//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestSchedule_NilRequest asserts that a nil request is rejected by the client.
func TestSchedule_NilRequest(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.Schedule(context.Background(), nil)
	require.ErrorIs(t, err, errRequestRequired)
}

func TestAlarmID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "stretch", AlarmID("  stretch "))

	generated := AlarmID("")
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	require.NotEqual(t, generated, AlarmID(""))
}

func TestDetectOrigin(t *testing.T) {
	t.Parallel()

	origin, err := DetectOrigin()
	require.NoError(t, err)
	require.Contains(t, origin, "@")
}
