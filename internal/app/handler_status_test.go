package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/x1labs/x1-rpc-proxy/internal/config"
)

func getJSON(t *testing.T, app *Application, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(ContentTypeHeader), ContentTypeJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s returned invalid JSON: %v", path, err)
		}
	}
	return rec.Code, payload
}

func TestHealthHandler(t *testing.T) {
	app := newTestApp(t, nil)
	app.startedAt = time.Now()

	code, payload := getJSON(t, app, "/health")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if payload["status"] != "healthy" || payload["service"] != "x1-rpc-proxy" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestStatsHandler(t *testing.T) {
	app := newTestApp(t, nil)
	app.repository.Upsert(context.Background(), "http://a:8899", true, 10*time.Millisecond)
	app.repository.Upsert(context.Background(), "http://b:8899", false, 0)

	code, payload := getJSON(t, app, "/stats")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if payload["total_nodes"] != float64(2) || payload["active_nodes"] != float64(1) {
		t.Errorf("unexpected node counts: %v", payload)
	}
	for _, key := range []string{"total_requests", "successful_requests", "failed_requests", "queue_rejections", "average_latency_ms"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("missing %s in stats payload", key)
		}
	}
}

func TestPerformanceHandler(t *testing.T) {
	app := newTestApp(t, nil)
	app.repository.Upsert(context.Background(), "http://a:8899", true, 10*time.Millisecond)
	app.repository.Upsert(context.Background(), "http://b:8899", true, 30*time.Millisecond)

	code, payload := getJSON(t, app, "/performance")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if payload["min_response_time_ms"] != float64(10) || payload["max_response_time_ms"] != float64(30) {
		t.Errorf("unexpected bounds: %v", payload)
	}
	if _, ok := payload["performance_optimization"]; !ok {
		t.Error("missing performance_optimization field")
	}
}

func TestQueueHandler(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Proxy.MaxConcurrentRequests = 3
	})
	if err := app.queue.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.queue.Release()

	code, payload := getJSON(t, app, "/queue")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	status, ok := payload["queue_status"].(map[string]any)
	if !ok {
		t.Fatalf("missing queue_status object: %v", payload)
	}
	if status["max_concurrent_requests"] != float64(3) || status["active_requests"] != float64(1) {
		t.Errorf("unexpected occupancy: %v", status)
	}
	if status["available_slots"] != float64(2) || status["queue_full"] != false {
		t.Errorf("unexpected availability: %v", status)
	}
}

func TestVersionHandler(t *testing.T) {
	app := newTestApp(t, nil)

	code, payload := getJSON(t, app, "/version")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if payload["name"] != "x1-rpc-proxy" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestMetricsHandler(t *testing.T) {
	app := newTestApp(t, nil)
	app.repository.Upsert(context.Background(), "http://a:8899", true, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "x1proxy_nodes_active 1") {
		t.Error("expected node gauge in metrics exposition")
	}
}

func TestCORSMiddleware(t *testing.T) {
	app := newTestApp(t, nil)

	preflight := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, preflight)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing allow-origin header")
	}

	get := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, get)

	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS headers must be present on ordinary responses too")
	}
}
