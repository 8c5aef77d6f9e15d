package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session pipeline's instrumentation. Construct one per
// process with a dedicated registerer so tests can use isolated registries.
type Metrics struct {
	Connections    prometheus.Counter
	QueuedPlayers  prometheus.Gauge
	MatchesFormed  prometheus.Counter
	QueueTimeouts  prometheus.Counter
	OpenRooms      prometheus.Gauge
	ActiveSessions prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewCounter(prometheus.CounterOpts{
			Name: "gridarena_connections_total",
			Help: "Websocket connections accepted.",
		}),
		QueuedPlayers: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridarena_queued_players",
			Help: "Participants currently waiting in matchmaking queues.",
		}),
		MatchesFormed: f.NewCounter(prometheus.CounterOpts{
			Name: "gridarena_matches_formed_total",
			Help: "Matches formed from the queues.",
		}),
		QueueTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "gridarena_queue_timeouts_total",
			Help: "Queue entries expired before a match formed.",
		}),
		OpenRooms: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridarena_open_rooms",
			Help: "Pre-match lobby rooms currently open.",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridarena_active_sessions",
			Help: "Authoritative game sessions currently running.",
		}),
	}
}
