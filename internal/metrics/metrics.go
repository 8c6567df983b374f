// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	computations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariffindex_computations_total",
			Help: "Composite index computations by composite family.",
		},
		[]string{"kind"},
	)

	computationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariffindex_computation_errors_total",
			Help: "Failed composite computations by composite family and error kind.",
		},
		[]string{"kind", "reason"},
	)

	computationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tariffindex_computation_duration_seconds",
			Help:    "Time spent fetching factors and computing a composite.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"kind"},
	)

	refreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariffindex_refresh_total",
			Help: "Factor refresh cycles by outcome.",
		},
		[]string{"status"},
	)

	sourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariffindex_source_fetch_total",
			Help: "Factor table fetches by source and outcome.",
		},
		[]string{"source", "status"},
	)
)

// ObserveComputation records one composite computation. kind is the
// composite family ("manufacturing", "export_price", "adhoc"); reason is the
// error kind and empty on success.
func ObserveComputation(kind, reason string, elapsed time.Duration) {
	computations.WithLabelValues(kind).Inc()
	computationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if reason != "" {
		computationErrors.WithLabelValues(kind, reason).Inc()
	}
}

// ObserveRefresh records a refresh cycle status ("success" or "error").
func ObserveRefresh(status string) {
	refreshes.WithLabelValues(status).Inc()
}

// ObserveFetch records a source fetch status ("ok", "hit", "miss", "error").
func ObserveFetch(source, status string) {
	sourceFetches.WithLabelValues(source, status).Inc()
}
