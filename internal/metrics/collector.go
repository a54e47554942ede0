// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector owns the Prometheus instruments for the handoff service. It
// implements handoff.RouterMetrics.
type Collector struct {
	// Handoff instruments
	handoffsCreatedTotal   *prometheus.CounterVec
	handoffsProcessedTotal *prometheus.CounterVec
	validationFailures     *prometheus.CounterVec
	queueDepth             prometheus.Gauge
	processDuration        prometheus.Histogram
	suggestionRequests     prometheus.Counter

	// HTTP instruments
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector registered on the default Prometheus
// registerer under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.handoffsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_created_total",
			Help:      "Total number of handoff requests created",
		},
		[]string{"priority"},
	)

	c.handoffsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_processed_total",
			Help:      "Total number of handoff requests processed, by final status",
		},
		[]string{"status"},
	)

	c.validationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Total number of handoff validation failures, by failed check",
		},
		[]string{"check"},
	)

	c.queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handoff_queue_depth",
			Help:      "Number of pending handoff requests",
		},
	)

	c.processDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handoff_process_duration_seconds",
			Help:      "Per-request processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.suggestionRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_requests_total",
			Help:      "Total number of alternative-agent suggestion lookups",
		},
	)

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	return c
}

// HandoffCreated records a newly enqueued handoff request.
func (c *Collector) HandoffCreated(priority string) {
	c.handoffsCreatedTotal.WithLabelValues(priority).Inc()
}

// HandoffProcessed records a processed request and its final status.
func (c *Collector) HandoffProcessed(status string, duration time.Duration) {
	c.handoffsProcessedTotal.WithLabelValues(status).Inc()
	c.processDuration.Observe(duration.Seconds())
}

// ValidationFailed records which validation check rejected a request.
func (c *Collector) ValidationFailed(check string) {
	c.validationFailures.WithLabelValues(check).Inc()
}

// QueueDepth records the current queue depth.
func (c *Collector) QueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// SuggestionsRequested records one alternative-agent lookup.
func (c *Collector) SuggestionsRequested() {
	c.suggestionRequests.Inc()
}

// RecordHTTPRequest records an HTTP request outcome.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
