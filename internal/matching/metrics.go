package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "matching_rank_duration_seconds",
			Help: "Time spent scoring and sorting a candidate pool",
		},
	)

	rankCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_rank_cache_total",
			Help: "Ranking cache lookups by result",
		},
		[]string{"result"},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_compatibility_scores",
			Help:    "Distribution of compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	swipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_swipes_total",
			Help: "Total number of swipe actions recorded",
		},
		[]string{"action"},
	)

	variantAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_variant_assignments_total",
			Help: "Variant assignments served to ranking requests",
		},
		[]string{"variant"},
	)
)
