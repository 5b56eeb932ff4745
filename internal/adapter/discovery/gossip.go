package discovery

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

const DefaultSolanaBinary = "solana"

// rpcPorts are the gossip ports worth dialling as JSON-RPC endpoints.
var rpcPorts = map[int]struct{}{
	8899: {}, // standard Solana RPC port
	8900: {},
	8001: {},
	9090: {},
}

// GossipCLISource shells out to a local solana CLI and scrapes RPC
// endpoints from its gossip table. The CLI being absent or failing is an
// expected condition; the tiered source falls through to the RPC API.
type GossipCLISource struct {
	clusterURL string
	binary     string
	logger     logger.StyledLogger
}

func NewGossipCLISource(clusterURL string, styledLogger logger.StyledLogger) *GossipCLISource {
	return &GossipCLISource{
		clusterURL: clusterURL,
		binary:     DefaultSolanaBinary,
		logger:     styledLogger,
	}
}

func (s *GossipCLISource) Name() string {
	return "gossip-cli"
}

func (s *GossipCLISource) Discover(ctx context.Context) ([]string, error) {
	// point the CLI at the target cluster first; a failure here is logged
	// but gossip may still work against a previously configured cluster
	configCmd := exec.CommandContext(ctx, s.binary, "config", "set", "--url", s.clusterURL)
	if out, err := configCmd.CombinedOutput(); err != nil {
		s.logger.Warn("Failed to configure solana CLI", "error", err, "output", strings.TrimSpace(string(out)))
	} else {
		s.logger.InfoWithEndpoint("Configured solana CLI for cluster", s.clusterURL)
	}

	gossipCmd := exec.CommandContext(ctx, s.binary, "gossip")
	out, err := gossipCmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gossip command failed: %w", err)
	}

	return s.parseGossipOutput(string(out)), nil
}

func (s *GossipCLISource) parseGossipOutput(out string) []string {
	var endpoints []string

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)

		if strings.Contains(line, "Nodes:") {
			s.logger.Info("Gossip table size", "line", line)
			continue
		}

		if endpoint, ok := extractRPCEndpoint(line); ok {
			endpoints = append(endpoints, endpoint)
		}
	}

	return endpoints
}

// extractRPCEndpoint scans a gossip table line for a host:port token on a
// known RPC port and rewrites it as an http URL.
func extractRPCEndpoint(line string) (string, bool) {
	if !strings.Contains(line, ":") {
		return "", false
	}

	for _, field := range strings.Fields(line) {
		if !strings.Contains(field, ":") {
			continue
		}

		parts := strings.SplitN(field, ":", 2)
		host := strings.TrimSpace(parts[0])
		if host == "" {
			continue
		}

		port, ok := leadingPort(strings.TrimSpace(parts[1]))
		if !ok {
			continue
		}
		if _, rpc := rpcPorts[port]; !rpc {
			continue
		}

		return fmt.Sprintf("http://%s:%d", host, port), true
	}

	return "", false
}

// leadingPort parses the longest leading decimal run of s as a port number.
// Gossip lines suffix ports with separators and flags.
func leadingPort(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || end > 5 {
		return 0, false
	}

	port := 0
	for i := 0; i < end; i++ {
		port = port*10 + int(s[i]-'0')
	}
	if port == 0 || port > 65535 {
		return 0, false
	}
	return port, true
}
