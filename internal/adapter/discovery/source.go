package discovery

import (
	"context"

	"github.com/x1labs/x1-rpc-proxy/internal/core/ports"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

// TieredSource chains discovery tiers: the first tier returning a non-empty
// endpoint list wins, and a tier's error also falls through to the next.
type TieredSource struct {
	tiers  []ports.DiscoverySource
	logger logger.StyledLogger
}

func NewTieredSource(styledLogger logger.StyledLogger, tiers ...ports.DiscoverySource) *TieredSource {
	return &TieredSource{
		tiers:  tiers,
		logger: styledLogger,
	}
}

// NewDefaultSource assembles the production tier order: gossip CLI, then the
// getClusterNodes RPC, then static seeds.
func NewDefaultSource(clusterURL string, styledLogger logger.StyledLogger) *TieredSource {
	return NewTieredSource(styledLogger,
		NewGossipCLISource(clusterURL, styledLogger),
		NewClusterNodesSource(clusterURL, styledLogger),
		NewStaticSeedSource(clusterURL, styledLogger),
	)
}

func (s *TieredSource) Name() string {
	return "tiered"
}

func (s *TieredSource) Discover(ctx context.Context) ([]string, error) {
	for _, tier := range s.tiers {
		endpoints, err := tier.Discover(ctx)
		if err != nil {
			s.logger.Warn("Discovery tier failed, falling through", "tier", tier.Name(), "error", err)
			continue
		}
		if len(endpoints) == 0 {
			s.logger.Warn("Discovery tier returned no endpoints, falling through", "tier", tier.Name())
			continue
		}
		return endpoints, nil
	}

	return nil, nil
}
