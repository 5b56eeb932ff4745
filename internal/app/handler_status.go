package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/x1labs/x1-rpc-proxy/internal/adapter/registry"
	"github.com/x1labs/x1-rpc-proxy/internal/version"
)

// healthHandler handles health check requests
func (a *Application) healthHandler(w http.ResponseWriter, r *http.Request) {
	nodeStats := a.repository.Stats(r.Context())

	a.writeJSON(w, map[string]any{
		"status":         "healthy",
		"service":        version.Name,
		"version":        version.Version,
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"active_nodes":   nodeStats.Active,
	})
}

func (a *Application) statsHandler(w http.ResponseWriter, r *http.Request) {
	nodeStats := a.repository.Stats(r.Context())
	forwardStats := a.collector.GetForwardStats()

	a.writeJSON(w, map[string]any{
		"total_nodes":         nodeStats.Total,
		"active_nodes":        nodeStats.Active,
		"total_requests":      forwardStats.TotalRequests,
		"successful_requests": forwardStats.SuccessfulRequests,
		"failed_requests":     forwardStats.FailedRequests,
		"queue_rejections":    forwardStats.QueueRejections,
		"evictions":           forwardStats.Evictions,
		"average_latency_ms":  forwardStats.AverageLatency.Milliseconds(),
	})
}

func (a *Application) performanceHandler(w http.ResponseWriter, r *http.Request) {
	perf := a.repository.PerformanceStats(r.Context())

	a.writeJSON(w, map[string]any{
		"total_nodes":              perf.Total,
		"active_nodes":             perf.Active,
		"min_response_time_ms":     perf.Min.Milliseconds(),
		"max_response_time_ms":     perf.Max.Milliseconds(),
		"performance_optimization": fmt.Sprintf("requests are routed to the %d fastest nodes", registry.TopFastestNodes),
	})
}

func (a *Application) queueHandler(w http.ResponseWriter, r *http.Request) {
	queueStats := a.queue.Stats()

	a.writeJSON(w, map[string]any{
		"queue_status": map[string]any{
			"max_concurrent_requests": queueStats.Capacity,
			"active_requests":         queueStats.Active,
			"available_slots":         queueStats.Available,
			"queue_full":              queueStats.Full,
		},
	})
}

func (a *Application) versionHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, map[string]any{
		"name":    version.Name,
		"version": version.Version,
		"commit":  version.Commit,
		"built":   version.Date,
	})
}

func (a *Application) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
