// Package metrics exposes Prometheus instruments for simulation runs,
// analyses and the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bfda"

// Metrics groups the instruments of one process. Tests create their own on a
// fresh registry; servers use Default.
type Metrics struct {
	// ReplicationsTotal counts finished replications.
	// Labels: type (t.between, t.paired, correlation), status (ok, failed)
	ReplicationsTotal *prometheus.CounterVec

	// RunsTotal counts simulation runs by outcome.
	// Labels: status (success, error, canceled)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures wall time of whole simulation runs.
	RunDurationSeconds *prometheus.HistogramVec

	// ActiveRuns tracks simulations currently executing.
	ActiveRuns prometheus.Gauge

	// AnalysesTotal counts analyses by kind and cache result.
	// Labels: kind (fixed, sequential, ssd), cache (hit, miss)
	AnalysesTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers all instruments on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReplicationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replications_total",
			Help:      "Replications finished by design and status",
		}, []string{"type", "status"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Simulation runs by outcome",
		}, []string{"status"}),
		RunDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of simulation runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
		}, []string{"type"}),
		ActiveRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Simulations currently executing",
		}),
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Design analyses by kind and cache result",
		}, []string{"kind", "cache"}),
		gatherer: reg,
	}
}

// Handler serves the instruments in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Default is the process-wide instance, registered on its own registry.
var Default = New(prometheus.NewRegistry())
