package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/storyflow/pkg/observability"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

const namespace = "storyflow"

// Metrics implements the observability hooks on top of a private Prometheus
// registry, so several servers (and tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// Labels: source, status (ok, error)
	loads *prometheus.CounterVec
	// Labels: kind (validate, analyze, ...), status
	analyses        *prometheus.CounterVec
	analyzeDuration *prometheus.HistogramVec
	// Labels: kind
	issues *prometheus.HistogramVec
	// Labels: status
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	// Labels: key_type (report, artifact), result (hit, miss, set)
	cacheOps *prometheus.CounterVec
	// Labels: method, route, status
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	// Labels: route, code
	requestErrors *prometheus.CounterVec
	inFlight      prometheus.Gauge
	wsClients     prometheus.Gauge
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "loads_total",
			Help: "Story documents loaded",
		}, []string{"source", "status"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "analyses_total",
			Help: "Analyses computed (cache misses only)",
		}, []string{"kind", "status"}),
		analyzeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "analyze_duration_seconds",
			Help:    "Time spent computing an analysis",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),
		issues: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "issues",
			Help:    "Issues, cycles or paths found per analysis",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 1000},
		}, []string{"kind"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "renders_total",
			Help: "Graph renders (cache misses only)",
		}, []string{"status"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "render_duration_seconds",
			Help:    "Time spent rendering graphs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "operations_total",
			Help: "Cache lookups and writes",
		}, []string{"key_type", "result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "errors_total",
			Help: "HTTP requests that failed, by error code",
		}, []string{"route", "code"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
			Help: "Requests currently being served",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ws", Name: "clients",
			Help: "Connected websocket clients",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.loads, m.analyses, m.analyzeDuration, m.issues,
		m.renders, m.renderDuration, m.cacheOps,
		m.requests, m.requestDuration, m.requestErrors, m.inFlight, m.wsClients,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Pipeline hooks

func (m *Metrics) OnLoadStart(context.Context, string) {}

func (m *Metrics) OnLoadComplete(_ context.Context, source string, _ int, _ time.Duration, err error) {
	if source != "request" {
		source = "file"
	}
	m.loads.WithLabelValues(source, status(err)).Inc()
}

func (m *Metrics) OnAnalyzeStart(context.Context, string, int) {}

func (m *Metrics) OnAnalyzeComplete(_ context.Context, kind string, issues int, d time.Duration, err error) {
	m.analyses.WithLabelValues(kind, status(err)).Inc()
	m.analyzeDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.issues.WithLabelValues(kind).Observe(float64(issues))
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	m.renders.WithLabelValues(status(err)).Inc()
	m.renderDuration.Observe(d.Seconds())
}

// Cache hooks

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
}

// HTTP hooks

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.inFlight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, statusCode int, d time.Duration) {
	m.inFlight.Dec()
	m.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _ string, route, code string) {
	m.requestErrors.WithLabelValues(route, code).Inc()
}
