package ports

import (
	"context"
	"time"
)

// DiscoverySource enumerates candidate upstream endpoints. Implementations
// make no deduplication guarantee; the repository dedupes by key.
type DiscoverySource interface {
	Name() string
	Discover(ctx context.Context) ([]string, error)
}

// NodeValidator decides whether an endpoint is a usable full RPC node.
// A nil return is a pass; the caller measures wall-clock duration around it.
type NodeValidator interface {
	Validate(ctx context.Context, endpoint string, timeout time.Duration) error
}

// StatsCollector centralises the counters read by the introspection surface.
type StatsCollector interface {
	RecordForward(outcome string, latency time.Duration)
	RecordQueueRejection(reason string)
	RecordProbe(ok bool)
	RecordEviction(endpoint string)
	GetForwardStats() ForwardStats
}

// ForwardStats is a snapshot of the request counters.
type ForwardStats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	QueueRejections    int64
	Evictions          int64
	AverageLatency     time.Duration
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	RejectionTimeout = "timeout"
	RejectionClosed  = "closed"
	RejectionNoNodes = "no_nodes"
)
