package domain

import (
	"context"
	"time"
)

// Node is one upstream RPC endpoint in the target cluster.
// Endpoint is the unique key and never changes after creation; everything
// else is overwritten by probe outcomes.
type Node struct {
	Endpoint     string
	LastSeen     time.Time
	ResponseTime time.Duration // zero until the first successful probe
	IsActive     bool
}

func NewNode(endpoint string) *Node {
	return &Node{
		Endpoint: endpoint,
		LastSeen: time.Now(),
	}
}

// HasResponseTime reports whether the node has ever been probed successfully.
func (n *Node) HasResponseTime() bool {
	return n.ResponseTime > 0
}

// NodeStats is the cheap total/active pair for the stats endpoint.
type NodeStats struct {
	Total  int
	Active int
}

// PerformanceStats adds the observed response-time bounds across active nodes.
// Min and Max are zero when no active node has a recorded response time.
type PerformanceStats struct {
	Total  int
	Active int
	Min    time.Duration
	Max    time.Duration
}

// NodeRepository is the shared ranking store consumed by the discovery loop,
// the forward handler and the introspection handlers.
type NodeRepository interface {
	// Upsert inserts or overwrites the entry for endpoint, stamping LastSeen.
	// An inactive upsert stores no response time.
	Upsert(ctx context.Context, endpoint string, isActive bool, responseTime time.Duration)
	// Remove deletes the entry if present. Invoked on forward failure.
	Remove(ctx context.Context, endpoint string) bool
	// SnapshotActive returns a point-in-time copy of the active entries.
	SnapshotActive(ctx context.Context) []*Node
	// SelectFast returns a uniformly random node among the top-K fastest
	// active entries, or nil when no active entry exists.
	SelectFast(ctx context.Context) *Node
	Stats(ctx context.Context) NodeStats
	PerformanceStats(ctx context.Context) PerformanceStats
}
