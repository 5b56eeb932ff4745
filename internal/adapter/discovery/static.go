package discovery

import (
	"context"

	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

// StaticSeedSource is the last-resort tier: the configured cluster URL plus
// the loopback defaults a local validator would listen on.
type StaticSeedSource struct {
	clusterURL string
	logger     logger.StyledLogger
}

func NewStaticSeedSource(clusterURL string, styledLogger logger.StyledLogger) *StaticSeedSource {
	return &StaticSeedSource{
		clusterURL: clusterURL,
		logger:     styledLogger,
	}
}

func (s *StaticSeedSource) Name() string {
	return "static-seeds"
}

func (s *StaticSeedSource) Discover(ctx context.Context) ([]string, error) {
	s.logger.Warn("Falling back to static seed endpoints")
	return []string{
		s.clusterURL,
		"http://localhost:8899",
		"http://127.0.0.1:8899",
	}, nil
}
