package health

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/x1labs/x1-rpc-proxy/internal/core/domain"
	"github.com/x1labs/x1-rpc-proxy/internal/core/ports"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

const (
	DefaultReprobeInitialInterval = 5 * time.Second
	DefaultReprobeMaxInterval     = 2 * time.Minute
	DefaultReprobeMaxElapsed      = 15 * time.Minute
)

// Reprober gives evicted endpoints a way back in before the next discovery
// tick rediscovers them, if it ever does. Discovery tiers can stop yielding
// an endpoint entirely, which would otherwise ban a forward-failed node
// forever; each eviction instead enters an exponential-backoff probe
// schedule that re-upserts the node on first success.
type Reprober struct {
	repository domain.NodeRepository
	validator  ports.NodeValidator
	clock      clockwork.Clock
	logger     logger.StyledLogger

	probeTimeout time.Duration

	mu      sync.Mutex
	pending map[string]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReprober(repository domain.NodeRepository, validator ports.NodeValidator, probeTimeout time.Duration, clock clockwork.Clock, styledLogger logger.StyledLogger) *Reprober {
	return &Reprober{
		repository:   repository,
		validator:    validator,
		clock:        clock,
		logger:       styledLogger,
		probeTimeout: probeTimeout,
		pending:      make(map[string]struct{}),
		stopCh:       make(chan struct{}),
	}
}

// Schedule enrols an evicted endpoint for backoff re-probing. Duplicate
// schedules while a cycle is in flight are dropped.
func (r *Reprober) Schedule(ctx context.Context, endpoint string) {
	r.mu.Lock()
	if _, inFlight := r.pending[endpoint]; inFlight {
		r.mu.Unlock()
		return
	}
	r.pending[endpoint] = struct{}{}
	r.mu.Unlock()

	r.logger.WarnWithEndpoint("Scheduling backoff re-probe for evicted node", endpoint)

	r.wg.Add(1)
	go r.reprobeLoop(ctx, endpoint)
}

// PendingCount reports how many endpoints are in a re-probe cycle.
func (r *Reprober) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Stop cancels all in-flight cycles and waits for them to exit.
func (r *Reprober) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}

func (r *Reprober) reprobeLoop(ctx context.Context, endpoint string) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.pending, endpoint)
		r.mu.Unlock()
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = DefaultReprobeInitialInterval
	bo.MaxInterval = DefaultReprobeMaxInterval
	bo.MaxElapsedTime = DefaultReprobeMaxElapsed
	bo.Reset()

	for {
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			r.logger.WarnWithEndpoint("Giving up re-probing evicted node", endpoint, "elapsed", bo.GetElapsedTime())
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-r.clock.After(wait):
		}

		start := r.clock.Now()
		err := r.validator.Validate(ctx, endpoint, r.probeTimeout)
		if err != nil {
			r.logger.Debug("re-probe failed", "endpoint", endpoint, "error", err)
			continue
		}

		responseTime := r.clock.Since(start)
		r.repository.Upsert(ctx, endpoint, true, responseTime)
		r.logger.InfoNodeActive("Evicted node recovered, re-added to cache", endpoint, "response_time", responseTime)
		return
	}
}
