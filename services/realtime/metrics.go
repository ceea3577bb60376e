package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "darasa",
		Subsystem: "realtime",
		Name:      "clients_connected",
		Help:      "Number of websocket clients currently connected.",
	})
	eventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "darasa",
		Subsystem: "realtime",
		Name:      "events_delivered_total",
		Help:      "Realtime events delivered to client sockets, by event name.",
	}, []string{"event"})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "darasa",
		Subsystem: "realtime",
		Name:      "frames_dropped_total",
		Help:      "Outbound frames dropped because a client send buffer was full.",
	})
)
