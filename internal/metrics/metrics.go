// Package metrics exports Prometheus instruments for refresh runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "refresher"

// Outcomes recorded on refresher_runs_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDryRun  = "dry_run"
)

// Metrics holds the refresh instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	recordsWritten *prometheus.CounterVec
	recordsDeleted *prometheus.CounterVec
}

// New creates the instruments on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Refresh runs by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of refresh runs in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"pipeline"}),
		recordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records inserted into destination tables.",
		}, []string{"pipeline"}),
		recordsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_deleted_total",
			Help:      "Records deleted from destination tables.",
		}, []string{"pipeline"}),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.recordsWritten,
		m.recordsDeleted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(pipeline, outcome string, duration time.Duration, written, deleted int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(pipeline, outcome).Inc()
	m.runDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
	if written > 0 {
		m.recordsWritten.WithLabelValues(pipeline).Add(float64(written))
	}
	if deleted > 0 {
		m.recordsDeleted.WithLabelValues(pipeline).Add(float64(deleted))
	}
}

// Registry returns the underlying registry, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format. A nil
// *Metrics serves 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
