// Package metrics exposes the pipeline's Prometheus instrumentation: stage
// outcome counts, stage duration histograms, and batch-level throughput
// counters. A nil *Metrics is safe to call methods on (every method
// no-ops), so callers that don't care about metrics can pass nil instead of
// threading an interface everywhere.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the pipeline reports to.
type Metrics struct {
	stageOutcomes *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	batchesTotal  *prometheus.CounterVec
	ticketsRouted prometheus.Counter
}

// New registers a fresh set of collectors against reg and returns the
// wrapper. Pass a *prometheus.Registry owned by the caller (not the global
// default registerer) so tests can create independent instances without
// colliding on metric names.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		stageOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketrouter",
			Name:      "stage_outcomes_total",
			Help:      "Count of stage outcomes by stage and terminal status.",
		}, []string{"stage", "status"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ticketrouter",
			Name:      "stage_duration_seconds",
			Help:      "Stage wall-clock duration from start to terminal status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		batchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketrouter",
			Name:      "batches_total",
			Help:      "Count of batches by terminal status.",
		}, []string{"status"}),
		ticketsRouted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ticketrouter",
			Name:      "tickets_routed_total",
			Help:      "Count of tickets that received an agent assignment.",
		}),
	}
}

// ObserveStage records one stage's terminal status and duration in seconds.
func (m *Metrics) ObserveStage(stage, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.stageOutcomes.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// ObserveBatch records one batch reaching a terminal status.
func (m *Metrics) ObserveBatch(status string) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(status).Inc()
}

// ObserveRouted increments the routed-ticket counter.
func (m *Metrics) ObserveRouted() {
	if m == nil {
		return
	}
	m.ticketsRouted.Inc()
}
