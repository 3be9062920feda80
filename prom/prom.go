// Package prom exports r9y lifecycle events as Prometheus metrics.
//
// Hooks returns an r9y.Hooks value whose callbacks increment counters and
// gauges registered with the given registerer. Pass it to a policy via
// r9y.WithHooks; one Hooks value per policy, since the policy name is baked
// into the metric labels.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/byte4ever/r9y"
)

// Metrics holds the collectors shared by every policy exporting through
// this package. Create one per registry with NewMetrics.
type Metrics struct {
	retries     *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	timeouts    *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	inFlight    *prometheus.GaugeVec
}

// NewMetrics creates and registers the r9y collectors with reg.
// It panics on registration conflicts, like promauto.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "r9y_retries_total",
			Help: "Retry attempts, by policy.",
		}, []string{"policy"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "r9y_rejections_total",
			Help: "Calls rejected without invoking the operation, by policy and kind.",
		}, []string{"policy", "kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "r9y_circuit_transitions_total",
			Help: "Circuit breaker state transitions, by policy and target state.",
		}, []string{"policy", "to"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "r9y_timeouts_total",
			Help: "Per-attempt deadline expiries, by policy.",
		}, []string{"policy"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "r9y_fallback_switches_total",
			Help: "Fallback provider switches, by policy and target provider.",
		}, []string{"policy", "to"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "r9y_bulkhead_in_flight",
			Help: "Currently leased bulkhead permits, by policy.",
		}, []string{"policy"}),
	}

	reg.MustRegister(
		m.retries,
		m.rejections,
		m.transitions,
		m.timeouts,
		m.fallbacks,
		m.inFlight,
	)

	return m
}

// Hooks returns an r9y.Hooks that records the named policy's events into
// the collectors.
func (m *Metrics) Hooks(policy string) *r9y.Hooks {
	return &r9y.Hooks{
		OnRetry: func(_ r9y.RetryAttempt) {
			m.retries.WithLabelValues(policy).Inc()
		},
		OnRejection: func(ev r9y.Rejection) {
			m.rejections.WithLabelValues(policy, ev.Kind.String()).Inc()
		},
		OnStateChange: func(ev r9y.StateChange) {
			m.transitions.WithLabelValues(policy, ev.To.String()).Inc()
		},
		OnTimeout: func(_ r9y.TimeoutExceeded) {
			m.timeouts.WithLabelValues(policy).Inc()
		},
		OnProviderSwitch: func(ev r9y.ProviderSwitch) {
			m.fallbacks.WithLabelValues(policy, ev.To).Inc()
		},
		OnBulkheadAcquired: func() {
			m.inFlight.WithLabelValues(policy).Inc()
		},
		OnBulkheadReleased: func() {
			m.inFlight.WithLabelValues(policy).Dec()
		},
	}
}
