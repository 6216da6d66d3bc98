package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesCastTotal counts vote mutations by action (created, updated, deleted).
	VotesCastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rostrum_votes_cast_total",
		Help: "Total number of vote mutations by action",
	}, []string{"action"})

	// VoteRetriesTotal counts vote transaction retries by reason.
	VoteRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rostrum_vote_retries_total",
		Help: "Total number of vote transaction retries by reason",
	}, []string{"reason"})

	// LeaderChangesTotal counts recomputations that changed a debate's leader.
	LeaderChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rostrum_leader_changes_total",
		Help: "Total number of leader changes across all debates",
	})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rostrum_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// EventPublishFailures counts dropped vote events by sink.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rostrum_event_publish_failures_total",
		Help: "Total number of vote events that could not be published",
	}, []string{"sink"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rostrum_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DebateSubscribers is the number of live-update connections.
	DebateSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rostrum_debate_subscribers",
		Help: "Number of active debate live-update connections",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
