package proxy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/x1labs/x1-rpc-proxy/internal/core/domain"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

// AdmissionQueue bounds the number of client requests in flight. Arrivals
// take the fast path when a slot is free and otherwise wait up to maxWait
// for one. A closed queue rejects immediately so shutdown drains fast.
type AdmissionQueue struct {
	sem      *semaphore.Weighted
	capacity int64
	maxWait  time.Duration
	logger   logger.StyledLogger

	active    atomic.Int64
	closeOnce sync.Once
	closedCh  chan struct{}
}

// QueueStats is a point-in-time view of slot occupancy.
type QueueStats struct {
	Capacity  int64
	Active    int64
	Available int64
	Full      bool
}

func NewAdmissionQueue(capacity int64, maxWait time.Duration, styledLogger logger.StyledLogger) *AdmissionQueue {
	return &AdmissionQueue{
		sem:      semaphore.NewWeighted(capacity),
		capacity: capacity,
		maxWait:  maxWait,
		logger:   styledLogger,
		closedCh: make(chan struct{}),
	}
}

// Acquire claims a request slot. It returns domain.ErrQueueTimeout when no
// slot frees up within the configured wait and domain.ErrQueueClosed once
// Close has been called. The caller must Release on every nil return.
func (q *AdmissionQueue) Acquire(ctx context.Context) error {
	if q.isClosed() {
		return domain.ErrQueueClosed
	}

	if q.sem.TryAcquire(1) {
		q.active.Add(1)
		return nil
	}

	q.logger.Debug("request queued, waiting for a slot", "active", q.active.Load(), "max_wait", q.maxWait)

	waitCtx, cancel := context.WithTimeout(ctx, q.maxWait)
	defer cancel()

	// close must unblock waiters already inside sem.Acquire
	go func() {
		select {
		case <-q.closedCh:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := q.sem.Acquire(waitCtx, 1); err != nil {
		if q.isClosed() {
			return domain.ErrQueueClosed
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.ErrQueueTimeout
	}

	if q.isClosed() {
		q.sem.Release(1)
		return domain.ErrQueueClosed
	}

	q.active.Add(1)
	return nil
}

// Release frees a slot claimed by a successful Acquire.
func (q *AdmissionQueue) Release() {
	q.active.Add(-1)
	q.sem.Release(1)
}

// Close rejects all future and currently queued arrivals. Requests already
// holding a slot are unaffected and finish normally.
func (q *AdmissionQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closedCh)
	})
}

func (q *AdmissionQueue) isClosed() bool {
	select {
	case <-q.closedCh:
		return true
	default:
		return false
	}
}

func (q *AdmissionQueue) Stats() QueueStats {
	active := q.active.Load()
	return QueueStats{
		Capacity:  q.capacity,
		Active:    active,
		Available: q.capacity - active,
		Full:      active >= q.capacity,
	}
}
