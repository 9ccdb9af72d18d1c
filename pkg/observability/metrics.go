// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// structured logging setup and HTTP middleware for the rsengine server.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceLabel is the constant service label attached to process metrics.
const ServiceLabel = "rsengine_server"

// Metrics holds the collectors exported on the metrics endpoint. Each
// Metrics owns its registry, so independent instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP requests by response status code.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration records HTTP request latency in seconds by status code.
	RequestDuration *prometheus.HistogramVec

	// ProcessStartTime holds the Unix time at which the server started.
	ProcessStartTime prometheus.Gauge

	// StreamingConnections tracks responses currently being streamed.
	StreamingConnections prometheus.Gauge

	// StreamChunksTotal counts chunks forwarded to streaming clients.
	StreamChunksTotal prometheus.Counter

	// RenderFailuresTotal counts render failures by error code.
	RenderFailuresTotal *prometheus.CounterVec
}

var (
	installed atomic.Pointer[Metrics]
	installMu sync.Mutex
)

// InitMetrics installs the process-wide Metrics on first use and returns
// it. Concurrent and repeated callers all receive the same handle.
func InitMetrics() *Metrics {
	if m := installed.Load(); m != nil {
		return m
	}

	installMu.Lock()
	defer installMu.Unlock()

	if m := installed.Load(); m != nil {
		return m
	}
	m := NewMetrics()
	installed.Store(m)
	return m
}

// NewMetrics creates a Metrics with a fresh registry that also exports Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsengine_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rsengine_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		ProcessStartTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "rsengine_process_start_time_seconds",
				Help:        "Start time of the server since unix epoch in seconds",
				ConstLabels: prometheus.Labels{"service": ServiceLabel},
			},
		),
		StreamingConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rsengine_streaming_connections_active",
				Help: "Active streaming responses",
			},
		),
		StreamChunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rsengine_stream_chunks_total",
				Help: "Chunks forwarded to streaming clients",
			},
		),
		RenderFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsengine_render_failures_total",
				Help: "Render failures",
			},
			[]string{"code"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.ProcessStartTime,
		m.StreamingConnections,
		m.StreamChunksTotal,
		m.RenderFailuresTotal,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus text exposition of m's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordProcessStart sets the process start gauge.
func (m *Metrics) RecordProcessStart(t time.Time) {
	m.ProcessStartTime.Set(float64(t.UnixNano()) / 1e9)
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(status int, d time.Duration) {
	label := strconv.Itoa(status)
	m.RequestsTotal.WithLabelValues(label).Inc()
	m.RequestDuration.WithLabelValues(label).Observe(d.Seconds())
}
