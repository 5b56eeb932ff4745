package registry

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/x1labs/x1-rpc-proxy/internal/core/domain"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

// TopFastestNodes is the K of the selection policy: forwards are spread
// uniformly across the K fastest active nodes. Ranking alone would herd all
// traffic onto a single node.
const TopFastestNodes = 20

// MemoryNodeRepository is the shared node cache: a lock-guarded map keyed by
// endpoint, written by probe outcomes and forward-failure evictions, read by
// every forward. Snapshots are taken under the read lock and released before
// any sorting or selection work.
type MemoryNodeRepository struct {
	nodes  map[string]*domain.Node
	mu     sync.RWMutex
	logger logger.StyledLogger
}

func NewMemoryNodeRepository(logger logger.StyledLogger) *MemoryNodeRepository {
	return &MemoryNodeRepository{
		nodes:  make(map[string]*domain.Node),
		logger: logger,
	}
}

func (r *MemoryNodeRepository) Upsert(ctx context.Context, endpoint string, isActive bool, responseTime time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, exists := r.nodes[endpoint]
	if !exists {
		node = domain.NewNode(endpoint)
		r.nodes[endpoint] = node
	}

	node.IsActive = isActive
	node.LastSeen = time.Now()
	if isActive {
		node.ResponseTime = responseTime
	} else {
		// an inactive node keeps no timing; the selector must never rank it
		node.ResponseTime = 0
	}

	r.logger.Debug("node upserted", "endpoint", endpoint, "active", isActive, "response_time", responseTime)
}

func (r *MemoryNodeRepository) Remove(ctx context.Context, endpoint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[endpoint]; !exists {
		return false
	}
	delete(r.nodes, endpoint)
	return true
}

// Get returns a copy of the entry, or nil when absent.
func (r *MemoryNodeRepository) Get(ctx context.Context, endpoint string) *domain.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[endpoint]
	if !exists {
		return nil
	}
	nodeCopy := *node
	return &nodeCopy
}

func (r *MemoryNodeRepository) SnapshotActive(ctx context.Context) []*domain.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*domain.Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		if node.IsActive {
			nodeCopy := *node
			active = append(active, &nodeCopy)
		}
	}
	return active
}

// SelectFast picks uniformly among the TopFastestNodes fastest active entries.
// Active entries without a recorded response time only participate when no
// timed entry exists at all.
func (r *MemoryNodeRepository) SelectFast(ctx context.Context) *domain.Node {
	active := r.SnapshotActive(ctx)
	if len(active) == 0 {
		return nil
	}

	timed := make([]*domain.Node, 0, len(active))
	for _, node := range active {
		if node.HasResponseTime() {
			timed = append(timed, node)
		}
	}

	if len(timed) == 0 {
		return active[rand.IntN(len(active))]
	}

	sort.Slice(timed, func(i, j int) bool {
		return timed[i].ResponseTime < timed[j].ResponseTime
	})

	k := TopFastestNodes
	if len(timed) < k {
		k = len(timed)
	}
	return timed[rand.IntN(k)]
}

func (r *MemoryNodeRepository) Stats(ctx context.Context) domain.NodeStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.NodeStats{Total: len(r.nodes)}
	for _, node := range r.nodes {
		if node.IsActive {
			stats.Active++
		}
	}
	return stats
}

func (r *MemoryNodeRepository) PerformanceStats(ctx context.Context) domain.PerformanceStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.PerformanceStats{Total: len(r.nodes)}
	for _, node := range r.nodes {
		if !node.IsActive {
			continue
		}
		stats.Active++
		if !node.HasResponseTime() {
			continue
		}
		if stats.Min == 0 || node.ResponseTime < stats.Min {
			stats.Min = node.ResponseTime
		}
		if node.ResponseTime > stats.Max {
			stats.Max = node.ResponseTime
		}
	}
	return stats
}
