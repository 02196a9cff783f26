// Package metrics exposes Prometheus counters for the alarm service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alarmee"

// Metrics groups the service counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	scheduled *prometheus.CounterVec
	fired     *prometheus.CounterVec
	cancelled prometheus.Counter
	degraded  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	pending   prometheus.Gauge
}

// New registers the alarm counters and the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alarms_scheduled_total",
				Help:      "Total alarms handed to the platform adapter by trigger kind",
			},
			[]string{"kind"},
		),
		fired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alarms_fired_total",
				Help:      "Total alarms posted by trigger kind",
			},
			[]string{"kind"},
		),
		cancelled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alarms_cancelled_total",
				Help:      "Total cancelled alarms",
			},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alarms_degraded_total",
				Help:      "Total alarms scheduled less precisely than requested by reason",
			},
			[]string{"reason"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_rejected_total",
				Help:      "Total rejected requests by reason",
			},
			[]string{"reason"},
		),
		pending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "alarms_pending",
				Help:      "Alarms currently persisted",
			},
		),
	}

	m.registry.MustRegister(
		m.scheduled,
		m.fired,
		m.cancelled,
		m.degraded,
		m.rejected,
		m.pending,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Scheduled counts an alarm handed to the adapter.
func (m *Metrics) Scheduled(kind string) {
	if m == nil {
		return
	}

	m.scheduled.WithLabelValues(kind).Inc()
}

// Fired counts a posted alarm.
func (m *Metrics) Fired(kind string) {
	if m == nil {
		return
	}

	m.fired.WithLabelValues(kind).Inc()
}

// Cancelled counts n cancelled alarms.
func (m *Metrics) Cancelled(n int) {
	if m == nil || n <= 0 {
		return
	}

	m.cancelled.Add(float64(n))
}

// Degraded counts an alarm scheduled with a weaker guarantee.
func (m *Metrics) Degraded(reason string) {
	if m == nil {
		return
	}

	m.degraded.WithLabelValues(reason).Inc()
}

// Rejected counts a refused request.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}

	m.rejected.WithLabelValues(reason).Inc()
}

// SetPending records how many alarms are persisted.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}

	m.pending.Set(float64(n))
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
