package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postboard_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postboard_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Content metrics
	ContentMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postboard_content_mutations_total",
			Help: "Posts and messages created, updated or deleted",
		},
		[]string{"kind", "op"}, // kind: post|message, op: create|update|delete
	)

	OwnershipDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postboard_ownership_denied_total",
			Help: "Mutations rejected because the caller is not the author",
		},
		[]string{"kind"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postboard_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
	)

	AssetsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postboard_assets_purged_total",
			Help: "Unreferenced uploaded images removed by the cleaner",
		},
	)
)
