package invoke

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects ambient instrumentation for invocations driven
// through this package. It is not part of the core's state machine
// and touches none of its invariants; it only observes terminal
// transitions that FutureHandle.finishGetLocked and the state machine
// already make. A nil *Metrics disables collection.
type Metrics struct {
	inFlight prometheus.Gauge
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers its collectors with reg and returns a *Metrics
// ready to pass to SetMetrics. Pass
// prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "invokex_invocations_in_flight",
			Help: "Invocations whose context has been created but not yet reached a terminal state.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invokex_invocations_total",
			Help: "Invocations by terminal outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "invokex_invocation_duration_seconds",
			Help:    "Time from invocation context creation to terminal state.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.inFlight, m.outcomes, m.duration)
	return m
}

func (m *Metrics) observeStart() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) observeTerminal(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.outcomes.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(started).Seconds())
}

// metricsHook is the package-wide collector, defaulting to nil
// (disabled) like logger defaults to a no-op. Set once at startup.
var metricsHook *Metrics

// SetMetrics installs the collector every InvocationContext created
// afterwards reports to. Pass nil to disable collection again.
func SetMetrics(m *Metrics) {
	metricsHook = m
}
