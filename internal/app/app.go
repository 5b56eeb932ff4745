package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/x1labs/x1-rpc-proxy/internal/adapter/discovery"
	"github.com/x1labs/x1-rpc-proxy/internal/adapter/health"
	"github.com/x1labs/x1-rpc-proxy/internal/adapter/proxy"
	"github.com/x1labs/x1-rpc-proxy/internal/adapter/registry"
	"github.com/x1labs/x1-rpc-proxy/internal/adapter/stats"
	"github.com/x1labs/x1-rpc-proxy/internal/config"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
	"github.com/x1labs/x1-rpc-proxy/internal/version"
)

const (
	ContentTypeHeader = "Content-Type"
	ContentTypeJSON   = "application/json"

	shutdownTimeout = 10 * time.Second
)

// Application wires the proxy together: discovery keeps the node cache warm,
// the admission queue bounds concurrency and the handler forwards to the
// fastest known node.
type Application struct {
	config           *config.Config
	logger           logger.StyledLogger
	repository       *registry.MemoryNodeRepository
	discoveryService *discovery.Service
	reprober         *health.Reprober
	queue            *proxy.AdmissionQueue
	forwarder        *proxy.Forwarder
	collector        *stats.Collector
	promRegistry     *prometheus.Registry
	server           *http.Server
	startedAt        time.Time
	errCh            chan error
}

// New creates a new application instance
func New(cfg *config.Config, styledLogger logger.StyledLogger) *Application {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())

	collector := stats.NewCollector(promRegistry, styledLogger)
	repository := registry.NewMemoryNodeRepository(styledLogger)
	validator := health.NewFullNodeValidator(styledLogger)
	clock := clockwork.NewRealClock()

	source := discovery.NewDefaultSource(cfg.Cluster.URL, styledLogger)
	discoveryService := discovery.NewService(source, validator, repository, collector, clock, discovery.ServiceConfig{
		Interval:            cfg.Discovery.HealthCheckInterval,
		ProbeTimeout:        cfg.Discovery.NodeHealthTimeout,
		MaxConcurrentProbes: cfg.Discovery.MaxConcurrentTests,
	}, styledLogger)

	reprober := health.NewReprober(repository, validator, cfg.Discovery.NodeHealthTimeout, clock, styledLogger)
	queue := proxy.NewAdmissionQueue(cfg.Proxy.MaxConcurrentRequests, cfg.Proxy.MaxQueueWaitTime, styledLogger)
	forwarder := proxy.NewForwarder(cfg.Proxy.RPCRequestTimeout, styledLogger)

	app := &Application{
		config:           cfg,
		logger:           styledLogger,
		repository:       repository,
		discoveryService: discoveryService,
		reprober:         reprober,
		queue:            queue,
		forwarder:        forwarder,
		collector:        collector,
		promRegistry:     promRegistry,
		errCh:            make(chan error, 1),
	}
	app.registerGauges()

	app.server = &http.Server{
		Addr:    cfg.Server.GetAddress(),
		Handler: app.buildHandler(),
	}

	return app
}

func (a *Application) registerGauges() {
	a.promRegistry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "x1proxy_queue_active_requests",
		Help: "Client requests currently holding an admission slot.",
	}, func() float64 {
		return float64(a.queue.Stats().Active)
	}))
	a.promRegistry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "x1proxy_nodes_active",
		Help: "RPC nodes currently marked active in the cache.",
	}, func() float64 {
		return float64(a.repository.Stats(context.Background()).Active)
	}))
	a.promRegistry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "x1proxy_nodes_total",
		Help: "RPC nodes known to the cache, active or not.",
	}, func() float64 {
		return float64(a.repository.Stats(context.Background()).Total)
	}))
}

func (a *Application) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{$}", a.rpcHandler)
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /stats", a.statsHandler)
	mux.HandleFunc("GET /performance", a.performanceHandler)
	mux.HandleFunc("GET /queue", a.queueHandler)
	mux.HandleFunc("GET /version", a.versionHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{}))

	return a.corsMiddleware(a.loggingMiddleware(mux))
}

// Start launches discovery and the HTTP listener. Bind failures surface on
// Err rather than as a return value because ListenAndServe blocks.
func (a *Application) Start(ctx context.Context) {
	a.startedAt = time.Now()
	a.discoveryService.Start(ctx)

	go func() {
		a.logger.InfoWithEndpoint("Listening on", "http://"+a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	a.logger.Info(version.Name+" started",
		"bind", a.server.Addr,
		"cluster", a.config.Cluster.URL,
		"max_concurrent_requests", a.config.Proxy.MaxConcurrentRequests)
}

// Err reports a fatal server error, such as a failure to bind the port.
func (a *Application) Err() <-chan error {
	return a.errCh
}

// Stop drains the application. The admission queue closes first so queued
// requests are answered with a shutdown error instead of hanging.
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	a.queue.Close()
	a.discoveryService.Stop()
	a.reprober.Stop()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	a.logger.Info(version.Name + " stopped")
	return nil
}
