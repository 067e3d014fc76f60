// Package metrics holds the Prometheus collectors of the relationship engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts connection state machine transitions by outcome.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relations_transitions_total",
		Help: "Connection state transitions by operation and result",
	}, []string{"operation", "result"})

	// SyncFailures counts derived side effects that failed after their transition committed.
	SyncFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relations_sync_failures_total",
		Help: "Failed side effects by effect kind",
	}, []string{"effect"})

	// SuggestionTierResults tracks how many candidates each suggestion tier contributed.
	SuggestionTierResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relations_suggestion_tier_results",
		Help:    "Candidates contributed per suggestion tier",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	}, []string{"tier"})

	// SuggestionTierFailures counts tiers that failed and were treated as empty.
	SuggestionTierFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relations_suggestion_tier_failures_total",
		Help: "Suggestion tiers that failed and contributed nothing",
	}, []string{"tier"})

	// SuggestionCache counts cache lookups by result (hit, miss, error).
	SuggestionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relations_suggestion_cache_total",
		Help: "Suggestion cache lookups by result",
	}, []string{"result"})
)

// Outcome returns the result label for an operation error.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
