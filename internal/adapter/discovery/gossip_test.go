package discovery

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

func discardLogger() logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractRPCEndpoint(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
		ok   bool
	}{
		{"standard rpc port", "10.0.0.1:8899 | 1.18.0", "http://10.0.0.1:8899", true},
		{"alternative rpc port", "10.0.0.2:8900", "http://10.0.0.2:8900", true},
		{"port 8001", "host.example:8001", "http://host.example:8001", true},
		{"port 9090", "10.0.0.3:9090", "http://10.0.0.3:9090", true},
		{"gossip-only port", "10.0.0.4:8000", "", false},
		{"no colon", "just some words", "", false},
		{"port with trailing junk", "10.0.0.5:8899(rpc)", "http://10.0.0.5:8899", true},
		{"second field matches", "pubkey123 10.0.0.6:8899", "http://10.0.0.6:8899", true},
		{"empty host", ":8899", "", false},
		{"non-numeric port", "10.0.0.7:abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractRPCEndpoint(tt.line)
			if ok != tt.ok || got != tt.want {
				t.Errorf("extractRPCEndpoint(%q) = (%q, %v), want (%q, %v)", tt.line, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLeadingPort(t *testing.T) {
	tests := []struct {
		in   string
		port int
		ok   bool
	}{
		{"8899", 8899, true},
		{"8899|extra", 8899, true},
		{"0", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"99999", 99999, false},
		{"123456", 0, false},
	}

	for _, tt := range tests {
		port, ok := leadingPort(tt.in)
		if ok != tt.ok || (ok && port != tt.port) {
			t.Errorf("leadingPort(%q) = (%d, %v), want (%d, %v)", tt.in, port, ok, tt.port, tt.ok)
		}
	}
}

func TestParseGossipOutput(t *testing.T) {
	source := NewGossipCLISource("https://rpc.testnet.x1.xyz", discardLogger())

	out := `IP Address      | Identity  | Gossip | TPU  | RPC Address
10.0.0.1        | abc       | 10.0.0.1:8001 | none | 10.0.0.1:8899
10.0.0.2        | def       | 10.0.0.2:8000 | none | none
Nodes: 2
`

	got := source.parseGossipOutput(out)

	// the first matching host:port token per line wins
	if len(got) != 1 {
		t.Fatalf("expected 1 endpoint (one per matching line), got %v", got)
	}
	if got[0] != "http://10.0.0.1:8001" {
		t.Errorf("expected first matching token, got %q", got[0])
	}
}

func TestGossipCLISource_DiscoverMissingBinary(t *testing.T) {
	source := NewGossipCLISource("https://rpc.testnet.x1.xyz", discardLogger())
	source.binary = "definitely-not-a-real-solana-binary"

	if _, err := source.Discover(context.Background()); err == nil {
		t.Error("expected error when the CLI is absent")
	}
}

func TestParseGossipOutput_Empty(t *testing.T) {
	source := NewGossipCLISource("https://rpc.testnet.x1.xyz", discardLogger())

	if got := source.parseGossipOutput(""); len(got) != 0 {
		t.Errorf("expected no endpoints, got %v", got)
	}
	if !reflect.DeepEqual(source.parseGossipOutput("Nodes: 0"), []string(nil)) {
		t.Error("node-count lines should be log-only")
	}
}
