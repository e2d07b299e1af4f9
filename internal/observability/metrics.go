package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comments_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CommentsCreated counts comments accepted, split by whether they went straight to approved.
	CommentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_created_total",
		Help: "Total number of comments created",
	}, []string{"approved"})

	// ReactionsRecorded counts reaction writes by outcome (set, changed, unchanged, removed).
	ReactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_reactions_total",
		Help: "Total number of reaction writes by outcome",
	}, []string{"outcome"})

	// ModerationActions counts audited privileged actions by action name.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_moderation_actions_total",
		Help: "Total number of audited moderation actions",
	}, []string{"action"})

	// AuthorizationDenials counts failed permission checks by permission name.
	AuthorizationDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_authorization_denials_total",
		Help: "Total number of denied permission checks",
	}, []string{"permission"})

	// AuditEntriesPurged counts audit rows removed by retention purges.
	AuditEntriesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comments_audit_entries_purged_total",
		Help: "Total number of audit log entries removed by retention",
	})

	// NotificationsPublished counts moderation events published to Redis by outcome.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_notifications_published_total",
		Help: "Total number of moderation events published",
	}, []string{"event", "outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
