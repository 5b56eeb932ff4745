package stats

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/x1labs/x1-rpc-proxy/internal/core/ports"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

// Collector centralises the request-path counters. Every forward, queue
// rejection, probe outcome and eviction reports here; the introspection
// handlers and the prometheus registry both read from it. Atomics only,
// this sits on the hot path.
type Collector struct {
	totalRequests      atomic.Int64
	successfulRequests atomic.Int64
	failedRequests     atomic.Int64
	queueRejections    atomic.Int64
	evictions          atomic.Int64
	totalLatencyNanos  atomic.Int64

	promForwards   *prometheus.CounterVec
	promRejections *prometheus.CounterVec
	promProbes     *prometheus.CounterVec
	promEvictions  prometheus.Counter
	promLatency    prometheus.Histogram

	logger logger.StyledLogger
}

func NewCollector(reg prometheus.Registerer, styledLogger logger.StyledLogger) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		promForwards: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x1proxy_forwards_total",
			Help: "RPC forwards by outcome.",
		}, []string{"outcome"}),
		promRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x1proxy_admission_rejections_total",
			Help: "Requests shed before forwarding, by reason.",
		}, []string{"reason"}),
		promProbes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x1proxy_probes_total",
			Help: "Node health probes by result.",
		}, []string{"result"}),
		promEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "x1proxy_evictions_total",
			Help: "Nodes evicted from the cache after forward failures.",
		}),
		promLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "x1proxy_forward_duration_seconds",
			Help:    "End-to-end forward latency.",
			Buckets: prometheus.DefBuckets,
		}),
		logger: styledLogger,
	}
}

func (c *Collector) RecordForward(outcome string, latency time.Duration) {
	c.totalRequests.Add(1)
	c.totalLatencyNanos.Add(int64(latency))

	switch outcome {
	case ports.OutcomeSuccess:
		c.successfulRequests.Add(1)
	case ports.OutcomeFailure:
		c.failedRequests.Add(1)
	}

	c.promForwards.WithLabelValues(outcome).Inc()
	c.promLatency.Observe(latency.Seconds())
}

func (c *Collector) RecordQueueRejection(reason string) {
	c.queueRejections.Add(1)
	c.promRejections.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordProbe(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.promProbes.WithLabelValues(result).Inc()
}

func (c *Collector) RecordEviction(endpoint string) {
	c.evictions.Add(1)
	c.promEvictions.Inc()
	c.logger.WarnWithEndpoint("Evicted node from cache", endpoint)
}

func (c *Collector) GetForwardStats() ports.ForwardStats {
	stats := ports.ForwardStats{
		TotalRequests:      c.totalRequests.Load(),
		SuccessfulRequests: c.successfulRequests.Load(),
		FailedRequests:     c.failedRequests.Load(),
		QueueRejections:    c.queueRejections.Load(),
		Evictions:          c.evictions.Load(),
	}

	if stats.TotalRequests > 0 {
		stats.AverageLatency = time.Duration(c.totalLatencyNanos.Load() / stats.TotalRequests)
	}
	return stats
}
