package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// gathered returns metric values keyed by family name and first label value.
func gathered(t *testing.T, m *Metrics) map[string]float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	values := make(map[string]float64)

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			if labels := metric.GetLabel(); len(labels) > 0 {
				key += "/" + labels[0].GetValue()
			}

			switch {
			case metric.GetCounter() != nil:
				values[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[key] = metric.GetGauge().GetValue()
			}
		}
	}

	return values
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New()

	m.Scheduled("calendar")
	m.Scheduled("calendar")
	m.Fired("absolute")
	m.Cancelled(3)
	m.Cancelled(0)
	m.Degraded("exact_denied")
	m.Rejected("invalid_request")
	m.SetPending(4)

	values := gathered(t, m)

	require.InDelta(t, 2, values["alarmee_alarms_scheduled_total/calendar"], 0)
	require.InDelta(t, 1, values["alarmee_alarms_fired_total/absolute"], 0)
	require.InDelta(t, 3, values["alarmee_alarms_cancelled_total"], 0)
	require.InDelta(t, 1, values["alarmee_alarms_degraded_total/exact_denied"], 0)
	require.InDelta(t, 1, values["alarmee_requests_rejected_total/invalid_request"], 0)
	require.InDelta(t, 4, values["alarmee_alarms_pending"], 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics

	require.NotPanics(t, func() {
		m.Scheduled("absolute")
		m.Fired("absolute")
		m.Cancelled(1)
		m.Degraded("x")
		m.Rejected("x")
		m.SetPending(1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New()
	m.Scheduled("interval")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL) //nolint:noctx // Test request against a local server.
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `alarmee_alarms_scheduled_total{kind="interval"} 1`)
}
