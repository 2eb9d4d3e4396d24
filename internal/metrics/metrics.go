package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Voting and proposal metrics
var (
	// VotesTotal tracks vote operations by target (film, event_film),
	// action (add, remove) and outcome (ok or the error kind)
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "festival_votes_total",
			Help: "Vote operations by target, action and outcome",
		},
		[]string{"target", "action", "outcome"},
	)

	// ProposalsTotal tracks film proposals by path (direct, event) and outcome
	ProposalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "festival_proposals_total",
			Help: "Film proposals by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	// MergedFieldsTotal counts metadata fields back-filled onto existing films
	MergedFieldsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "festival_merged_fields_total",
			Help: "Film metadata fields filled in by later proposals",
		},
	)

	// RatingsTotal tracks rating attempts by outcome
	RatingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "festival_ratings_total",
			Help: "Rating attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ServiceErrorsTotal counts errors returned by the service layer by kind
	ServiceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "festival_service_errors_total",
			Help: "Service errors by kind",
		},
		[]string{"kind"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks handled requests by method, route and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// CacheLookupsTotal tracks response cache lookups by result (hit, miss, error)
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// Activity queue metrics
var (
	// ActivityPublishedTotal tracks activity publishes by status (ok, error)
	ActivityPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_published_total",
			Help: "Activity events published by status",
		},
		[]string{"status"},
	)

	// ActivityConsumedTotal tracks consumed activity messages by status (ok, error)
	ActivityConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_consumed_total",
			Help: "Activity events consumed by status",
		},
		[]string{"status"},
	)
)
