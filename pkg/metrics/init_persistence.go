package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPersistenceMetrics() {
	r.CommitsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_persistence_commits_total",
			Help: "Entity store writes by operation and final status",
		},
		[]string{"op", "status"},
	)

	r.CommitRetries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_persistence_retries_total",
			Help: "Entity store write retries",
		},
		[]string{"op"},
	)

	r.CommitDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canvas_persistence_commit_duration_seconds",
			Help:    "Entity store call latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"op"},
	)

	r.CommitsCoalesced = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "canvas_persistence_coalesced_total",
			Help: "Queued writes merged into an earlier pending write",
		},
	)

	r.QueueDepth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_persistence_queue_depth",
			Help: "Writes waiting for the persistence worker",
		},
	)
}
