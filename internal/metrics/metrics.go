// Package metrics defines the Prometheus instruments exported by the hub.
//
// Metrics are registered on a caller-supplied registerer so tests and
// multiple hubs in one process do not collide on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alarmhub"

// Hub holds the counters and gauges for the broadcast hub.
type Hub struct {
	// PeersConnected is the number of currently joined viewers.
	PeersConnected prometheus.Gauge

	// MessagesReceived counts inbound frames by message type. Label: type.
	MessagesReceived *prometheus.CounterVec

	// MessagesDropped counts inbound frames that were ignored. Label: reason.
	MessagesDropped *prometheus.CounterVec

	// EventsBroadcast counts fan-out rounds by event type. Label: type.
	EventsBroadcast *prometheus.CounterVec

	// PeersEvicted counts viewers closed because their queue filled up.
	PeersEvicted prometheus.Counter

	// IncidentsTotal is the size of the canonical collection.
	IncidentsTotal prometheus.Gauge
}

func NewHub(reg prometheus.Registerer) *Hub {
	f := promauto.With(reg)
	return &Hub{
		PeersConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "peers_connected",
			Help:      "Number of connected viewers",
		}),
		MessagesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_received_total",
			Help:      "Inbound messages accepted, by type",
		}, []string{"type"}),
		MessagesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages ignored, by reason",
		}, []string{"reason"}),
		EventsBroadcast: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_broadcast_total",
			Help:      "Events fanned out to viewers, by type",
		}, []string{"type"}),
		PeersEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "peers_evicted_total",
			Help:      "Viewers disconnected because their send queue was full",
		}),
		IncidentsTotal: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "incidents",
			Help:      "Incidents held in the canonical collection",
		}),
	}
}
