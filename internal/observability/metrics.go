package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands. redis.Nil is not a failure.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaceofthoughts_redis_errors_total",
		Help: "Failed Redis commands by command",
	}, []string{"command"})

	// CacheResults counts cache-aside lookups by key prefix and outcome.
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaceofthoughts_cache_results_total",
		Help: "Cache lookups by key prefix and result (hit, miss)",
	}, []string{"prefix", "result"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spaceofthoughts_query_duration_seconds",
		Help:    "Repository query duration by operation and table",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation", "table"})

	// AuthDecisions counts access guard outcomes by reason ("allow" on success).
	AuthDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaceofthoughts_auth_decisions_total",
		Help: "Access guard decisions by outcome",
	}, []string{"outcome"})

	// ImageUploads counts image upload attempts by result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaceofthoughts_image_uploads_total",
		Help: "Image uploads by result (stored, rejected, failed)",
	}, []string{"result"})

	// ContentEventsPublished counts content events published to Redis.
	ContentEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaceofthoughts_content_events_published_total",
		Help: "Content change events published by type",
	}, []string{"event_type"})

	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spaceofthoughts_feed_connections",
		Help: "Open live feed websockets",
	})

	// FeedDrops counts events a feed subscriber never received. Reason is
	// "full" for a saturated queue and "closed" for a subscriber already gone.
	FeedDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spaceofthoughts_feed_dropped_events_total",
		Help: "Feed events dropped per hub and reason",
	}, []string{"hub", "reason"})
)

// TrackQuery starts a QueryDuration timer; call the result when the query is done.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		QueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
