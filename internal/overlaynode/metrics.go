package overlaynode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the node's Prometheus collectors. It doubles as the router's
// dispatch observer.
type Metrics struct {
	OpenPeers    prometheus.Gauge
	InboundConns prometheus.Gauge

	EventsDispatched  *prometheus.CounterVec
	EnvelopesRejected prometheus.Counter
	HandlerFailures   *prometheus.CounterVec

	Reconnects prometheus.Counter
	Broadcasts prometheus.Counter
}

// NewMetrics registers the node's collectors with the given registerer under
// the "peermesh" namespace.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OpenPeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "peermesh",
			Name:      "peers",
			Help:      "Current number of tracked outbound peers",
		}),
		InboundConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "peermesh",
			Name:      "inbound_connections",
			Help:      "Current number of open inbound connections",
		}),
		EventsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peermesh",
			Name:      "events_dispatched_total",
			Help:      "Envelopes successfully routed to a handler",
		}, []string{"event"}),
		EnvelopesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peermesh",
			Name:      "envelopes_rejected_total",
			Help:      "Messages dropped for failing envelope validation or lacking a handler",
		}),
		HandlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peermesh",
			Name:      "handler_failures_total",
			Help:      "Handler invocations that returned an error or panicked",
		}, []string{"event"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peermesh",
			Name:      "reconnect_attempts_total",
			Help:      "Scheduled reconnect attempts fired after a peer transport closed",
		}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "peermesh",
			Name:      "broadcasts_total",
			Help:      "Broadcast operations performed",
		}),
	}
}

// EnvelopeRejected implements router.Observer.
func (m *Metrics) EnvelopeRejected() {
	m.EnvelopesRejected.Inc()
}

// EventDispatched implements router.Observer.
func (m *Metrics) EventDispatched(event string) {
	m.EventsDispatched.WithLabelValues(event).Inc()
}

// HandlerFailed implements router.Observer.
func (m *Metrics) HandlerFailed(event string) {
	m.HandlerFailures.WithLabelValues(event).Inc()
}
