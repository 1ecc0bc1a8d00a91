// Package ametrics wraps github.com/prometheus/client_golang counters and
// gauges for the broker and client runtimes. No HTTP exporter is shipped;
// the embedder registers Metrics against its own prometheus.Registerer,
// same division of responsibility the teacher leaves to its callers for
// exposing any process-level telemetry.
package ametrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge the broker and client update. The
// non-nil *Metrics returned by NewNoop is safe to use everywhere; its
// collectors are never registered. A nil *Metrics is not usable.
type Metrics struct {
	enabled bool

	Connections          prometheus.Gauge
	Objects              prometheus.Gauge
	Services             prometheus.Gauge
	Channels             prometheus.Gauge
	BusListeners         prometheus.Gauge
	InflightFunctionCalls prometheus.Gauge
	MessagesProcessed    prometheus.Counter
	BusEventsFanned      prometheus.Counter
}

// New registers a fresh set of metrics against reg and returns them.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		enabled: true,
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections", Help: "Live connections.",
		}),
		Objects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "objects", Help: "Live objects.",
		}),
		Services: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "services", Help: "Live services.",
		}),
		Channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "channels", Help: "Live channels.",
		}),
		BusListeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "bus_listeners", Help: "Live bus listeners.",
		}),
		InflightFunctionCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "inflight_function_calls", Help: "Function calls awaiting a reply.",
		}),
		MessagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_processed_total", Help: "Messages dispatched by the broker loop.",
		}),
		BusEventsFanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bus_events_fanned_total", Help: "Bus events delivered to listeners.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Connections, m.Objects, m.Services, m.Channels,
			m.BusListeners, m.InflightFunctionCalls,
			m.MessagesProcessed, m.BusEventsFanned,
		)
	}
	return m
}

// NewNoop returns Metrics backed by unregistered collectors: safe to call,
// observable by nothing.
func NewNoop() *Metrics { return New(nil, "aldrin") }
