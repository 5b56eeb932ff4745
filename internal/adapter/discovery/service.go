package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"

	"github.com/x1labs/x1-rpc-proxy/internal/core/domain"
	"github.com/x1labs/x1-rpc-proxy/internal/core/ports"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
	"github.com/x1labs/x1-rpc-proxy/pkg/format"
)

type ServiceConfig struct {
	Interval            time.Duration
	ProbeTimeout        time.Duration
	MaxConcurrentProbes int64
}

// Service is the discovery loop: once per tick it enumerates candidates,
// fans probes out under a concurrency cap and funnels the outcomes into the
// repository. Entries are never truncated between ticks; a node that drops
// out of discovery keeps its prior state until a probe flips it.
type Service struct {
	source     ports.DiscoverySource
	validator  ports.NodeValidator
	repository domain.NodeRepository
	stats      ports.StatsCollector
	clock      clockwork.Clock
	config     ServiceConfig
	logger     logger.StyledLogger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewService(
	source ports.DiscoverySource,
	validator ports.NodeValidator,
	repository domain.NodeRepository,
	stats ports.StatsCollector,
	clock clockwork.Clock,
	config ServiceConfig,
	styledLogger logger.StyledLogger,
) *Service {
	return &Service{
		source:     source,
		validator:  validator,
		repository: repository,
		stats:      stats,
		clock:      clock,
		config:     config,
		logger:     styledLogger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the loop. The first tick runs immediately so the cache has
// nodes before the first client request arrives.
func (s *Service) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}

func (s *Service) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := s.clock.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.Chan():
			s.runTick(ctx)
		}
	}
}

func (s *Service) runTick(ctx context.Context) {
	endpoints, err := s.source.Discover(ctx)
	if err != nil {
		s.logger.Error("Discovery failed for this tick", "error", err)
		return
	}

	s.logger.InfoWithCount("Discovered candidate RPC endpoints", len(endpoints))

	sem := semaphore.NewWeighted(s.config.MaxConcurrentProbes)
	var wg sync.WaitGroup

	for _, endpoint := range endpoints {
		wg.Add(1)
		go func(endpoint string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			s.probe(ctx, endpoint)
		}(endpoint)
	}

	wg.Wait()

	perf := s.repository.PerformanceStats(ctx)
	s.logger.Info("Discovery tick complete",
		"nodes", format.NodesUp(perf.Active, perf.Total),
		"fastest", format.Latency(perf.Min.Milliseconds()),
		"slowest", format.Latency(perf.Max.Milliseconds()))

	if perf.Active == 0 {
		s.logger.Warn("No active RPC nodes available")
	}
}

func (s *Service) probe(ctx context.Context, endpoint string) {
	start := s.clock.Now()
	err := s.validator.Validate(ctx, endpoint, s.config.ProbeTimeout)
	if err != nil {
		s.repository.Upsert(ctx, endpoint, false, 0)
		s.stats.RecordProbe(false)
		s.logger.WarnNodeInactive("Probe failed for", endpoint, "error", err)
		return
	}

	responseTime := s.clock.Since(start)
	s.repository.Upsert(ctx, endpoint, true, responseTime)
	s.stats.RecordProbe(true)
	s.logger.Debug("probe ok", "endpoint", endpoint, "response_time", responseTime)
}
