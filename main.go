package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/x1labs/x1-rpc-proxy/internal/app"
	"github.com/x1labs/x1-rpc-proxy/internal/config"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
	"github.com/x1labs/x1-rpc-proxy/internal/util"
	"github.com/x1labs/x1-rpc-proxy/internal/version"
)

func main() {
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	}
	version.PrintVersionInfo(false, vlog)

	flags := pflag.NewFlagSet(version.Name, pflag.ExitOnError)
	config.RegisterFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	cfg, v, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	lcfg := buildLoggerConfig(cfg)
	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(lcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising",
		"version", version.Version,
		"pid", os.Getpid(),
		"cluster", cfg.Cluster.URL)

	config.OnReload(v, func(newCfg *config.Config) {
		styledLogger.Warn("Configuration file changed, restart to apply",
			"file", v.ConfigFileUsed())
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	application := app.New(cfg, styledLogger)
	application.Start(ctx)

	select {
	case err := <-application.Err():
		logger.FatalWithLogger(logInstance, "Server failed", "error", err)
	case <-ctx.Done():
	}

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	styledLogger.Info(version.Name + " has shutdown")
}

func buildLoggerConfig(cfg *config.Config) *logger.Config {
	return &logger.Config{
		Level:      util.GetEnvOrDefault("X1PROXY_LOG_LEVEL", cfg.Logging.Level),
		LogDir:     util.GetEnvOrDefault("X1PROXY_LOG_DIR", cfg.Logging.Dir),
		Theme:      util.GetEnvOrDefault("X1PROXY_LOG_THEME", "default"),
		MaxSize:    util.GetEnvIntOrDefault("X1PROXY_LOG_MAX_SIZE", 100),
		MaxBackups: util.GetEnvIntOrDefault("X1PROXY_LOG_MAX_BACKUPS", 5),
		MaxAge:     util.GetEnvIntOrDefault("X1PROXY_LOG_MAX_AGE", 30),
		FileOutput: util.GetEnvBoolOrDefault("X1PROXY_LOG_FILE", cfg.Logging.FileOutput),
	}
}
