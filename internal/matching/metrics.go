// internal/matching/metrics.go
package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	swipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_swipes_total",
			Help: "Total number of swipes by decision",
		},
		[]string{"decision"},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_matches_total",
			Help: "Total number of mutual matches detected",
		},
	)

	refillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_refills_total",
			Help: "Total number of queue refill attempts by outcome",
		},
		[]string{"outcome"},
	)

	rescoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_rescores_total",
			Help: "Total number of external rescore jobs by outcome",
		},
		[]string{"outcome"},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_compatibility_scores",
			Help:    "Distribution of locally computed compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

func RecordSwipe(liked bool) {
	decision := "pass"
	if liked {
		decision = "like"
	}
	swipesTotal.WithLabelValues(decision).Inc()
}

func RecordMatch() {
	matchesTotal.Inc()
}

// RecordRefill outcomes: filled, empty, skipped, dropped.
func RecordRefill(outcome string) {
	refillsTotal.WithLabelValues(outcome).Inc()
}

// RecordRescore outcomes: updated, failed, dropped.
func RecordRescore(outcome string) {
	rescoresTotal.WithLabelValues(outcome).Inc()
}

func RecordCompatibilityScore(score float64) {
	compatibilityScores.Observe(score)
}
