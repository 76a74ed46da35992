package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_events_broadcast_total",
		Help: "Transport events fanned out to room members, by event name.",
	}, []string{"event"})

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jam_rooms_active",
		Help: "Rooms currently registered in the hub.",
	})

	ClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jam_room_clients",
		Help: "Clients currently joined to any room.",
	})
)
