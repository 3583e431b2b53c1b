// Package metrics exposes the engine's Prometheus collectors. Collectors are
// registered on the default registry and served by the HTTP interface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FactorComputeTotal counts factor computations by factor name.
	FactorComputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trquant_factor_compute_total",
		Help: "Factor computations attempted, by factor",
	}, []string{"factor"})

	// FactorComputeFailures counts isolated per-factor computation failures.
	FactorComputeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trquant_factor_compute_failures_total",
		Help: "Factor computations that failed and were excluded from the batch",
	}, []string{"factor"})

	// BatchDuration observes full ComputeAll batch durations.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trquant_batch_duration_seconds",
		Help:    "Duration of full factor batch computations",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	// StorageFallbackTotal counts operations served by the file fallback
	// store after a primary backend failure.
	StorageFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trquant_storage_fallback_total",
		Help: "Storage operations degraded to the file fallback, by operation",
	}, []string{"op"})

	// AdvisorFallbackTotal counts advisory requests served by the rule
	// engine after model-path failures.
	AdvisorFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trquant_advisor_fallback_total",
		Help: "Advisory requests answered by the deterministic rule engine",
	})

	// SignalsComposed observes the size of composed signal sets.
	SignalsComposed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trquant_signals_composed",
		Help:    "Number of signals produced per composition run",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
)
