package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "stream_duels"

var (
	TriggersReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_received_total",
			Help:      "Trigger events received, by source type",
		},
		[]string{"trigger_type"},
	)

	TriggersDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_dropped_total",
			Help:      "Trigger events dropped before orchestration, by reason",
		},
		[]string{"reason"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Viewers waiting for the game surface",
		},
		[]string{"queue"},
	)

	Challenges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_total",
			Help:      "Challenges by outcome",
		},
		[]string{"game_type", "outcome"},
	)

	GamesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started",
		},
		[]string{"game_type"},
	)

	GamesEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Games ended, by reason",
		},
		[]string{"game_type", "reason"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently on the surface",
		},
	)
)

// Register adds every collector to registry.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(
		TriggersReceived,
		TriggersDropped,
		QueueDepth,
		Challenges,
		GamesStarted,
		GamesEnded,
		ActiveSessions,
	)
}
