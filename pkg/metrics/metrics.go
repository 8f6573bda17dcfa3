package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records a finished HTTP request.
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (r *Registry) RecordResponseSize(method, route string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, route).Observe(size)
}

func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// WebsocketOpened and WebsocketClosed track live event streams.
func (r *Registry) WebsocketOpened() { r.WebsocketClients.Inc() }
func (r *Registry) WebsocketClosed() { r.WebsocketClients.Dec() }

// RecordGesture counts a finished gesture.
func (r *Registry) RecordGesture(gesture, outcome string) {
	r.GesturesTotal.WithLabelValues(gesture, outcome).Inc()
}

// RecordEvent counts an event published on the bus.
func (r *Registry) RecordEvent(eventType string) {
	r.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordRender records one rendered frame.
func (r *Registry) RecordRender(surface string, duration time.Duration) {
	r.RendersTotal.WithLabelValues(surface).Inc()
	r.RenderDuration.WithLabelValues(surface).Observe(duration.Seconds())
}

// RecordBroadcast counts a relayed event.
func (r *Registry) RecordBroadcast(ok bool) {
	r.BroadcastsTotal.WithLabelValues(status(ok)).Inc()
}

// CanvasOpened tracks a newly loaded canvas.
func (r *Registry) CanvasOpened(id string, nodes int) {
	r.CanvasesOpen.Inc()
	r.CanvasNodes.WithLabelValues(id).Set(float64(nodes))
}

// CanvasClosed drops a canvas's series.
func (r *Registry) CanvasClosed(id string) {
	r.CanvasesOpen.Dec()
	r.CanvasNodes.DeleteLabelValues(id)
}

// SetCanvasNodes updates the node count of a loaded canvas.
func (r *Registry) SetCanvasNodes(id string, nodes int) {
	r.CanvasNodes.WithLabelValues(id).Set(float64(nodes))
}

// RecordCommit records one entity store call.
func (r *Registry) RecordCommit(op string, err error, duration time.Duration) {
	r.CommitsTotal.WithLabelValues(op, status(err == nil)).Inc()
	r.CommitDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordRetry counts a retried entity store call.
func (r *Registry) RecordRetry(op string) {
	r.CommitRetries.WithLabelValues(op).Inc()
}

// RecordCoalesced counts a write merged into a pending one.
func (r *Registry) RecordCoalesced() {
	r.CommitsCoalesced.Inc()
}

// SetQueueDepth reports the pending-write count.
func (r *Registry) SetQueueDepth(n int) {
	r.QueueDepth.Set(float64(n))
}

// UpdateSystemMetrics refreshes uptime, goroutine and heap gauges.
func (r *Registry) UpdateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(ms.Alloc))
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
