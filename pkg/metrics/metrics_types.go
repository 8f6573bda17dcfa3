package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the canvas service exports.
type Registry struct {
	// HTTP
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Canvas
	CanvasesOpen     prometheus.Gauge
	CanvasNodes      *prometheus.GaugeVec
	GesturesTotal    *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	RendersTotal     *prometheus.CounterVec
	RenderDuration   *prometheus.HistogramVec
	BroadcastsTotal  *prometheus.CounterVec
	WebsocketClients prometheus.Gauge

	// Persistence
	CommitsTotal     *prometheus.CounterVec
	CommitRetries    *prometheus.CounterVec
	CommitDuration   *prometheus.HistogramVec
	CommitsCoalesced prometheus.Counter
	QueueDepth       prometheus.Gauge

	// System
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric initialized on its own
// Prometheus registry, so tests never collide.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
	}

	r.initHTTPMetrics()
	r.initCanvasMetrics()
	r.initPersistenceMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
