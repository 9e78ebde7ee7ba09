package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Global collector so tests and handlers never register twice
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	FetchDuration   *prometheus.HistogramVec
	CompileDuration *prometheus.HistogramVec
	CompiledNodes   *prometheus.HistogramVec
	DroppedEdges    *prometheus.CounterVec
	RenderDuration  *prometheus.HistogramVec

	// Canvas metrics
	Clicks           *prometheus.CounterVec
	StaleCompletions *prometheus.CounterVec
	Mutations        *prometheus.CounterVec
	ActiveCanvases   prometheus.Gauge
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates the collector with the given namespace
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "diagram_fetch_duration_seconds",
				Help:      "Diagram snapshot fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"diagram_type", "status"},
		),
		CompileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "diagram_compile_duration_seconds",
				Help:      "Diagram compile duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"diagram_type"},
		),
		CompiledNodes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "diagram_compiled_nodes",
				Help:      "Number of nodes per compiled diagram",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"diagram_type"},
		),
		DroppedEdges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagram_dropped_edges_total",
				Help:      "Edges skipped at compile time because an endpoint was missing",
			},
			[]string{"diagram_type"},
		),
		RenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Render engine round trip in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		Clicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "canvas_clicks_total",
				Help:      "Click dispatches by outcome",
			},
			[]string{"outcome"},
		),
		StaleCompletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "canvas_stale_completions_total",
				Help:      "Fetch or render completions discarded as stale",
			},
			[]string{"stage"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagram_mutations_total",
				Help:      "Successful node and edge mutations",
			},
			[]string{"kind"},
		),
		ActiveCanvases: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "canvas_active",
				Help:      "Mounted canvas sessions",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.FetchDuration,
		c.CompileDuration,
		c.CompiledNodes,
		c.DroppedEdges,
		c.RenderDuration,
		c.Clicks,
		c.StaleCompletions,
		c.Mutations,
		c.ActiveCanvases,
	)

	globalCollector = c
	return c
}

// ResetForTesting resets the global collector for testing purposes
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) ObserveFetch(diagramType string, duration time.Duration, err error) {
	c.FetchDuration.WithLabelValues(diagramType, statusLabel(err)).Observe(duration.Seconds())
}

func (c *Collector) ObserveCompile(diagramType string, nodes, droppedEdges int, duration time.Duration) {
	c.CompileDuration.WithLabelValues(diagramType).Observe(duration.Seconds())
	c.CompiledNodes.WithLabelValues(diagramType).Observe(float64(nodes))
	if droppedEdges > 0 {
		c.DroppedEdges.WithLabelValues(diagramType).Add(float64(droppedEdges))
	}
}

func (c *Collector) ObserveRender(duration time.Duration, err error) {
	c.RenderDuration.WithLabelValues(statusLabel(err)).Observe(duration.Seconds())
}

func (c *Collector) IncClick(outcome string) {
	c.Clicks.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncStaleCompletion(stage string) {
	c.StaleCompletions.WithLabelValues(stage).Inc()
}

func (c *Collector) IncMutation(kind string) {
	c.Mutations.WithLabelValues(kind).Inc()
}

func (c *Collector) SetActiveCanvases(n int) {
	c.ActiveCanvases.Set(float64(n))
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
