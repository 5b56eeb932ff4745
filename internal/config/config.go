package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultClusterURL            = "https://rpc.testnet.x1.xyz"
	DefaultHealthCheckInterval   = 30 * time.Second
	DefaultNodeHealthTimeout     = 2 * time.Second
	DefaultRPCRequestTimeout     = 60 * time.Second
	DefaultMaxConcurrentTests    = int64(50)
	DefaultMaxConcurrentRequests = int64(100)
	DefaultMaxQueueWaitTime      = 30 * time.Second
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Cluster: ClusterConfig{
			URL: DefaultClusterURL,
		},
		Discovery: DiscoveryConfig{
			HealthCheckInterval: DefaultHealthCheckInterval,
			NodeHealthTimeout:   DefaultNodeHealthTimeout,
			MaxConcurrentTests:  DefaultMaxConcurrentTests,
		},
		Proxy: ProxyConfig{
			RPCRequestTimeout:     DefaultRPCRequestTimeout,
			MaxConcurrentRequests: DefaultMaxConcurrentRequests,
			MaxQueueWaitTime:      DefaultMaxQueueWaitTime,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "logs",
			FileOutput: false,
		},
	}
}

// RegisterFlags defines the command line surface on the given flag set.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.Int("port", DefaultPort, "port to listen on")
	flags.String("cluster-url", DefaultClusterURL, "cluster RPC URL used for discovery and as a fallback node")
	flags.Duration("health-check-interval", DefaultHealthCheckInterval, "interval between discovery and health check rounds")
	flags.Duration("node-health-timeout", DefaultNodeHealthTimeout, "timeout for a single node health probe")
	flags.Duration("rpc-request-timeout", DefaultRPCRequestTimeout, "timeout for a forwarded RPC request")
	flags.Int64("max-concurrent-tests", DefaultMaxConcurrentTests, "maximum node probes run in parallel")
	flags.Int64("max-concurrent-rpc-requests", DefaultMaxConcurrentRequests, "maximum client requests served concurrently")
	flags.Duration("max-queue-wait-time", DefaultMaxQueueWaitTime, "how long a request may wait for a free slot before 503")
	flags.Bool("verbose", false, "enable debug logging")
	flags.String("config", "", "path to a config file")
}

// Load builds the configuration from defaults, an optional config file,
// X1PROXY_ environment variables and command line flags, in ascending
// precedence. The returned viper instance keeps watching the config file
// when one was found.
func Load(flags *pflag.FlagSet) (*Config, *viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("cluster.url", DefaultClusterURL)
	v.SetDefault("discovery.health_check_interval", DefaultHealthCheckInterval)
	v.SetDefault("discovery.node_health_timeout", DefaultNodeHealthTimeout)
	v.SetDefault("discovery.max_concurrent_tests", DefaultMaxConcurrentTests)
	v.SetDefault("proxy.rpc_request_timeout", DefaultRPCRequestTimeout)
	v.SetDefault("proxy.max_concurrent_rpc_requests", DefaultMaxConcurrentRequests)
	v.SetDefault("proxy.max_queue_wait_time", DefaultMaxQueueWaitTime)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dir", "logs")
	v.SetDefault("logging.file_output", false)

	v.SetEnvPrefix("X1PROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindings := map[string]string{
			"server.port":                       "port",
			"cluster.url":                       "cluster-url",
			"discovery.health_check_interval":   "health-check-interval",
			"discovery.node_health_timeout":     "node-health-timeout",
			"discovery.max_concurrent_tests":    "max-concurrent-tests",
			"proxy.rpc_request_timeout":         "rpc-request-timeout",
			"proxy.max_concurrent_rpc_requests": "max-concurrent-rpc-requests",
			"proxy.max_queue_wait_time":         "max-queue-wait-time",
		}
		for key, flagName := range bindings {
			flag := flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			// a default-valued flag must not shadow file or env settings
			if !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, nil, fmt.Errorf("binding flag %s: %w", flagName, err)
			}
		}

		if verbose, err := flags.GetBool("verbose"); err == nil && verbose {
			v.Set("logging.level", "debug")
		}
		if configFile, err := flags.GetString("config"); err == nil && configFile != "" {
			v.SetConfigFile(configFile)
		}
	}

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("x1-rpc-proxy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/x1-rpc-proxy")
	}

	if err := v.ReadInConfig(); err != nil {
		// a missing config file is fine, defaults and env carry the day
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
	}

	return config, v, nil
}

// OnReload registers fn to run with the re-read configuration whenever the
// watched config file changes. Reload failures keep the previous config.
func OnReload(v *viper.Viper, fn func(*Config)) {
	v.OnConfigChange(func(event fsnotify.Event) {
		config := DefaultConfig()
		if err := v.Unmarshal(config); err != nil {
			return
		}
		if err := config.Validate(); err != nil {
			return
		}
		fn(config)
	})
}
