package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsTotal counts finished recommendations by outcome: ok, degraded, cancelled, cached
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gift_recommendation_duration_seconds",
			Help:    "End-to-end recommendation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// FallbacksTotal counts deterministic fallbacks by stage (intent, reasoning, pipeline) and reason
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_fallbacks_total",
			Help: "Total number of deterministic fallbacks taken",
		},
		[]string{"stage", "reason"},
	)

	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gift_ai_call_duration_seconds",
			Help:    "Duration of AI engine calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"result"},
	)

	AICallsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_ai_calls_rejected_total",
			Help: "AI calls rejected before reaching the engine",
		},
		[]string{"reason"}, // rate_limited, circuit_open
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gift_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gift_catalog_query_duration_seconds",
			Help:    "Duration of catalog queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// SourceRequests counts marketplace searches by platform and result (api, placeholder, error)
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_source_requests_total",
			Help: "Marketplace source searches by platform and result",
		},
		[]string{"platform", "result"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_cache_requests_total",
			Help: "Recommendation cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
