// Package metrics exposes coordinator counters and gauges to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "maze"

type Metrics struct {
	Rooms          prometheus.Gauge
	Connections    prometheus.Gauge
	Messages       *prometheus.CounterVec
	Dropped        prometheus.Counter
	ArchitectEdits *prometheus.CounterVec
	Disconnects    *prometheus.CounterVec
	Terminations   *prometheus.CounterVec
	LifecycleDrops prometheus.Counter
}

// New registers the collectors with reg. Passing a fresh registry per test
// keeps tests independent.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Live rooms.",
		}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open WebSocket connections.",
		}),
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by kind.",
		}, []string{"kind"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Outbound frames dropped because a send queue was full.",
		}),
		ArchitectEdits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "architect_edits_total",
			Help:      "Architect wall edits by result.",
		}, []string{"result"}),
		Disconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Participants removed from rooms, by reason.",
		}, []string{"reason"}),
		Terminations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_terminations_total",
			Help:      "Rooms closed by the coordinator, by reason.",
		}, []string{"reason"}),
		LifecycleDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_dropped_total",
			Help:      "Lifecycle events dropped because the bus was full.",
		}),
	}
}
