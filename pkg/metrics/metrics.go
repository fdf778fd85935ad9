// Package metrics exposes the service's Prometheus collectors. Everything
// is registered on the default registry and served via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connections tracks live websocket connections.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keyduel",
		Name:      "ws_connections",
		Help:      "Number of live websocket connections.",
	})

	// QueueSize tracks the current matchmaking queue depth.
	QueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keyduel",
		Name:      "queue_size",
		Help:      "Current matchmaking queue size.",
	})

	// QueueEvictions counts staleness evictions from the queue.
	QueueEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyduel",
		Name:      "queue_evictions_total",
		Help:      "Queue entries evicted for staleness.",
	})

	// ActiveMatches tracks matches currently in flight.
	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keyduel",
		Name:      "matches_active",
		Help:      "Matches currently pending or active.",
	})

	// MatchesFinished counts terminal match transitions by outcome.
	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keyduel",
		Name:      "matches_finished_total",
		Help:      "Matches moved to a terminal state, by outcome.",
	}, []string{"outcome"})
)

// Outcome label values for MatchesFinished.
const (
	OutcomeWin       = "win"
	OutcomeDraw      = "draw"
	OutcomeForfeit   = "forfeit"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)
