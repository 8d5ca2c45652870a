// Package telemetry exposes the runtime's Prometheus metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatches counts handled inbound events by event type and result.
	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatview",
		Name:      "dispatch_total",
		Help:      "Inbound events dispatched, by event type and result.",
	}, []string{"event", "result"})

	// EditPaths counts which transport path each render took.
	EditPaths = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatview",
		Name:      "edit_path_total",
		Help:      "Render pushes by chosen transport path (send, text, caption, media).",
	}, []string{"path"})

	// TransportErrors counts failed transport calls by operation.
	TransportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatview",
		Name:      "transport_errors_total",
		Help:      "Failed transport calls by operation.",
	}, []string{"op"})

	// TrackedViews gauges how many view records are currently live.
	TrackedViews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatview",
		Name:      "tracked_views",
		Help:      "View records currently tracked in the store.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
