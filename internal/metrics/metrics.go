// Package metrics declares the Prometheus collectors for the reconciliation
// engine and its storage layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsRecordedTotal tracks reconciliation outcomes (created, merged,
	// skipped) and rejections (too_soon, forbidden).
	SessionsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_recorded_total",
			Help: "Session reports by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	// ReconcileDuration tracks end-to-end reconciliation latency in seconds
	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Session reconciliation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// MergeRetries counts conditional updates lost to a concurrent writer
	MergeRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_merge_retries_total",
			Help: "Merges retried after losing a conditional update race",
		},
	)

	// ServicesCreatedTotal counts successful service registrations
	ServicesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "services_created_total",
			Help: "Total services registered",
		},
	)

	// ServiceCacheHits tracks Redis service cache hits
	ServiceCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "service_cache_hits_total",
			Help: "Service metadata lookups answered from the Redis cache",
		},
	)

	// ServiceCacheMisses tracks lookups that fell through to PostgreSQL
	ServiceCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "service_cache_misses_total",
			Help: "Service metadata lookups that fell through to PostgreSQL",
		},
	)
)
