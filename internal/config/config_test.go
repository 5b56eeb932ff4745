package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newTestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	return flags
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Cluster.URL != "https://rpc.testnet.x1.xyz" {
		t.Errorf("unexpected cluster url %s", cfg.Cluster.URL)
	}
	if cfg.Discovery.HealthCheckInterval != 30*time.Second {
		t.Errorf("expected 30s health check interval, got %v", cfg.Discovery.HealthCheckInterval)
	}
	if cfg.Discovery.NodeHealthTimeout != 2*time.Second {
		t.Errorf("expected 2s node health timeout, got %v", cfg.Discovery.NodeHealthTimeout)
	}
	if cfg.Proxy.RPCRequestTimeout != 60*time.Second {
		t.Errorf("expected 60s rpc request timeout, got %v", cfg.Proxy.RPCRequestTimeout)
	}
	if cfg.Proxy.MaxConcurrentRequests != 100 || cfg.Discovery.MaxConcurrentTests != 50 {
		t.Errorf("unexpected concurrency defaults: %+v", cfg)
	}
	if cfg.Proxy.MaxQueueWaitTime != 30*time.Second {
		t.Errorf("expected 30s max queue wait, got %v", cfg.Proxy.MaxQueueWaitTime)
	}
}

func TestLoad_WithoutFileOrFlags(t *testing.T) {
	cfg, _, err := Load(newTestFlags(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Server.GetAddress() != "0.0.0.0:8080" {
		t.Errorf("unexpected address %s", cfg.Server.GetAddress())
	}
}

func TestLoad_FlagsOverrideDefaults(t *testing.T) {
	flags := newTestFlags(t,
		"--port=9999",
		"--cluster-url=https://rpc.mainnet.x1.xyz",
		"--max-queue-wait-time=5s",
		"--verbose",
	)

	cfg, _, err := Load(flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("flag did not override port: %d", cfg.Server.Port)
	}
	if cfg.Cluster.URL != "https://rpc.mainnet.x1.xyz" {
		t.Errorf("flag did not override cluster url: %s", cfg.Cluster.URL)
	}
	if cfg.Proxy.MaxQueueWaitTime != 5*time.Second {
		t.Errorf("flag did not override queue wait: %v", cfg.Proxy.MaxQueueWaitTime)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("verbose should set debug logging, got %s", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("X1PROXY_SERVER_PORT", "8123")
	t.Setenv("X1PROXY_DISCOVERY_NODE_HEALTH_TIMEOUT", "5s")

	cfg, _, err := Load(newTestFlags(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("env did not override port: %d", cfg.Server.Port)
	}
	if cfg.Discovery.NodeHealthTimeout != 5*time.Second {
		t.Errorf("env did not override node health timeout: %v", cfg.Discovery.NodeHealthTimeout)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proxy.yaml")
	content := `
server:
  port: 8888
cluster:
  url: https://rpc.local.example
proxy:
  max_concurrent_rpc_requests: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, v, err := Load(newTestFlags(t, "--config="+path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("file did not set port: %d", cfg.Server.Port)
	}
	if cfg.Cluster.URL != "https://rpc.local.example" {
		t.Errorf("file did not set cluster url: %s", cfg.Cluster.URL)
	}
	if cfg.Proxy.MaxConcurrentRequests != 7 {
		t.Errorf("file did not set concurrency: %d", cfg.Proxy.MaxConcurrentRequests)
	}
	// unset keys keep their defaults
	if cfg.Discovery.HealthCheckInterval != DefaultHealthCheckInterval {
		t.Errorf("default lost: %v", cfg.Discovery.HealthCheckInterval)
	}
	if v.ConfigFileUsed() != path {
		t.Errorf("expected %s to be watched, got %q", path, v.ConfigFileUsed())
	}
}

func TestLoad_FlagBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proxy.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8888\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, _, err := Load(newTestFlags(t, "--config="+path, "--port=9001"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("explicit flag must beat the file, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults pass", func(c *Config) {}, true},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, false},
		{"empty cluster url", func(c *Config) { c.Cluster.URL = "" }, false},
		{"zero interval", func(c *Config) { c.Discovery.HealthCheckInterval = 0 }, false},
		{"zero probe timeout", func(c *Config) { c.Discovery.NodeHealthTimeout = 0 }, false},
		{"zero probes", func(c *Config) { c.Discovery.MaxConcurrentTests = 0 }, false},
		{"zero rpc timeout", func(c *Config) { c.Proxy.RPCRequestTimeout = 0 }, false},
		{"zero slots", func(c *Config) { c.Proxy.MaxConcurrentRequests = 0 }, false},
		{"negative queue wait", func(c *Config) { c.Proxy.MaxQueueWaitTime = -time.Second }, false},
		{"zero queue wait ok", func(c *Config) { c.Proxy.MaxQueueWaitTime = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
