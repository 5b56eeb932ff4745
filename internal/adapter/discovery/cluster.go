package discovery

import (
	"context"
	"fmt"
	"strings"

	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

// clusterRPC is the slice of the Solana RPC client the source needs.
type clusterRPC interface {
	GetClusterNodes(ctx context.Context) ([]*solanarpc.GetClusterNodesResult, error)
}

// ClusterNodesSource asks the seed cluster endpoint for its gossip view via
// the getClusterNodes RPC and keeps every node advertising an RPC address.
type ClusterNodesSource struct {
	client clusterRPC
	logger logger.StyledLogger
}

func NewClusterNodesSource(clusterURL string, styledLogger logger.StyledLogger) *ClusterNodesSource {
	return &ClusterNodesSource{
		client: solanarpc.New(clusterURL),
		logger: styledLogger,
	}
}

func newClusterNodesSourceWithClient(client clusterRPC, styledLogger logger.StyledLogger) *ClusterNodesSource {
	return &ClusterNodesSource{client: client, logger: styledLogger}
}

func (s *ClusterNodesSource) Name() string {
	return "cluster-nodes-rpc"
}

func (s *ClusterNodesSource) Discover(ctx context.Context) ([]string, error) {
	nodes, err := s.client.GetClusterNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("getClusterNodes failed: %w", err)
	}

	endpoints := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if node == nil || node.RPC == nil {
			continue
		}

		addr := *node.RPC
		if addr == "" || addr == "null" {
			continue
		}
		if !strings.HasPrefix(addr, "http") {
			addr = "http://" + addr
		}
		endpoints = append(endpoints, addr)
	}

	s.logger.InfoWithCount("Parsed RPC endpoints from getClusterNodes", len(endpoints))
	return endpoints, nil
}
