package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCanvasMetrics() {
	r.CanvasesOpen = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_open",
			Help: "Number of canvases loaded in memory",
		},
	)

	r.CanvasNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "canvas_nodes",
			Help: "Number of nodes per loaded canvas",
		},
		[]string{"canvas"},
	)

	r.GesturesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_gestures_total",
			Help: "Finished pointer gestures by kind and outcome",
		},
		[]string{"gesture", "outcome"},
	)

	r.EventsPublished = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_events_published_total",
			Help: "Events published on the canvas bus",
		},
		[]string{"type"},
	)

	r.RendersTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_renders_total",
			Help: "Rendered frames by surface",
		},
		[]string{"surface"},
	)

	r.RenderDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canvas_render_duration_seconds",
			Help:    "Frame render time in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"surface"},
	)

	r.BroadcastsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_broadcasts_total",
			Help: "Events relayed to remote listeners",
		},
		[]string{"status"},
	)

	r.WebsocketClients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_websocket_clients",
			Help: "Connected websocket event streams",
		},
	)
}
