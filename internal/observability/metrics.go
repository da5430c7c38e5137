package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimpro_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claimpro_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ClaimSubmissions counts submitted claims by whether an attachment was stored.
	ClaimSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimpro_claim_submissions_total",
		Help: "Total number of submitted claims",
	}, []string{"attachment"})

	// ClaimTransitions counts review transitions by source and target status.
	ClaimTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimpro_claim_transitions_total",
		Help: "Total number of claim status transitions",
	}, []string{"from", "to"})

	// ClaimTerminalOverrides counts transitions that left an already-terminal status.
	ClaimTerminalOverrides = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimpro_claim_terminal_overrides_total",
		Help: "Total number of review actions applied to claims that were no longer pending",
	}, []string{"from", "to"})

	// AttachmentRejections counts uploads refused by attachment validation.
	AttachmentRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimpro_attachment_rejections_total",
		Help: "Total number of rejected claim attachments by reason",
	}, []string{"reason"})

	// ConcurrencyConflicts counts stale claim writes detected by the version check.
	ConcurrencyConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claimpro_claim_concurrency_conflicts_total",
		Help: "Total number of claim updates rejected by optimistic concurrency",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
