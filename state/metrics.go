package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stateCacheLookups counts cache reads by result (hit, miss).
	stateCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "household_state_cache_lookups_total",
		Help: "Derived state cache lookups by result",
	}, []string{"result"})

	// stateCacheErrors counts store failures by operation. They never fail a request.
	stateCacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "household_state_cache_errors_total",
		Help: "Derived state cache store errors by operation",
	}, []string{"operation"})

	stateInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "household_state_invalidations_total",
		Help: "Total household state invalidations",
	})

	// stateRebuildDuration tracks load plus derivation latency by outcome.
	stateRebuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "household_state_rebuild_duration_seconds",
		Help:    "Derived state rebuild duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
	}, []string{"outcome"})

	stateCookedMeals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "household_state_cooked_meals_total",
		Help: "Cook meal requests by outcome",
	}, []string{"outcome"})
)
