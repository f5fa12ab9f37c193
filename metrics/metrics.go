// Package metrics provides Prometheus metrics for the bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lob-bridge-go/infrastructure/logger"
)

// Collector groups the bridge's metrics.
type Collector struct {
	FramesTotal       prometheus.Counter
	DecodeDrops       prometheus.Counter
	Resyncs           prometheus.Counter
	Reconnects        prometheus.Counter
	EngineConnected   prometheus.Gauge
	Subscribers       prometheus.Gauge
	Broadcasts        prometheus.Counter
	SubscriberDrops   prometheus.Counter
	MessagesProcessed prometheus.Gauge
}

// New registers the bridge metrics with reg. Pass
// prometheus.DefaultRegisterer in main; tests use a private registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_total",
			Help: "Complete frames cut from the engine stream",
		}),
		DecodeDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_decode_drops_total",
			Help: "Frames dropped for type/size mismatch",
		}),
		Resyncs: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_resyncs_total",
			Help: "Bytes skipped recovering from bad length fields",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_engine_reconnects_total",
			Help: "Engine connection attempts after a failure",
		}),
		EngineConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_engine_connected",
			Help: "1 while the engine link is up",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_subscribers",
			Help: "Currently connected websocket subscribers",
		}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_broadcasts_total",
			Help: "Snapshot broadcasts performed",
		}),
		SubscriberDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_subscriber_drops_total",
			Help: "Subscribers removed after send failure or backpressure",
		}),
		MessagesProcessed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_messages_processed",
			Help: "Book messages-processed counter",
		}),
	}
}

// Serve exposes /metrics on addr in the background. An empty addr disables
// the endpoint.
func Serve(addr string, log *logger.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Event("metrics_listen", map[string]interface{}{"addr": addr})
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.LogError(err, map[string]interface{}{"component": "metrics"})
		}
	}()
}
