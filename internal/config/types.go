package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the proxy
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cluster   ClusterConfig   `mapstructure:"cluster"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ClusterConfig identifies the cluster the proxy fronts
type ClusterConfig struct {
	URL string `mapstructure:"url"`
}

// DiscoveryConfig controls the node discovery and probing loop
type DiscoveryConfig struct {
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	NodeHealthTimeout   time.Duration `mapstructure:"node_health_timeout"`
	MaxConcurrentTests  int64         `mapstructure:"max_concurrent_tests"`
}

// ProxyConfig controls request forwarding and admission
type ProxyConfig struct {
	RPCRequestTimeout     time.Duration `mapstructure:"rpc_request_timeout"`
	MaxConcurrentRequests int64         `mapstructure:"max_concurrent_rpc_requests"`
	MaxQueueWaitTime      time.Duration `mapstructure:"max_queue_wait_time"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	FileOutput bool   `mapstructure:"file_output"`
}

// Validate rejects configurations the proxy cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Cluster.URL == "" {
		return fmt.Errorf("cluster url must not be empty")
	}
	if c.Discovery.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive, got %v", c.Discovery.HealthCheckInterval)
	}
	if c.Discovery.NodeHealthTimeout <= 0 {
		return fmt.Errorf("node health timeout must be positive, got %v", c.Discovery.NodeHealthTimeout)
	}
	if c.Discovery.MaxConcurrentTests < 1 {
		return fmt.Errorf("max concurrent tests must be at least 1, got %d", c.Discovery.MaxConcurrentTests)
	}
	if c.Proxy.RPCRequestTimeout <= 0 {
		return fmt.Errorf("rpc request timeout must be positive, got %v", c.Proxy.RPCRequestTimeout)
	}
	if c.Proxy.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max concurrent rpc requests must be at least 1, got %d", c.Proxy.MaxConcurrentRequests)
	}
	if c.Proxy.MaxQueueWaitTime < 0 {
		return fmt.Errorf("max queue wait time must not be negative, got %v", c.Proxy.MaxQueueWaitTime)
	}
	return nil
}
