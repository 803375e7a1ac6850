// Package metrics holds the Prometheus collectors for session activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsCreated counts sessions successfully persisted.
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swipebite",
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of sessions created",
		},
	)

	// Joins counts join attempts.
	// Labels: result (joined, rejoined, full, not_found, closed, removed, error)
	Joins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swipebite",
			Subsystem: "sessions",
			Name:      "joins_total",
			Help:      "Total number of join attempts by result",
		},
		[]string{"result"},
	)

	// Swipes counts recorded swipes.
	// Labels: kind (like, dislike)
	Swipes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swipebite",
			Subsystem: "sessions",
			Name:      "swipes_total",
			Help:      "Total number of recorded swipes",
		},
		[]string{"kind"},
	)

	// Matches counts recipes newly added to a session's matches.
	Matches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swipebite",
			Subsystem: "sessions",
			Name:      "matches_total",
			Help:      "Total number of recipe matches recorded",
		},
	)

	// GatewayRetries counts retried gateway calls.
	// Labels: op, outcome (retry, exhausted)
	GatewayRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swipebite",
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Gateway calls retried after a persistence failure",
		},
		[]string{"op", "outcome"},
	)

	// ActiveCoordinators tracks coordinators held by the registry.
	ActiveCoordinators = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "swipebite",
			Subsystem: "sessions",
			Name:      "coordinators",
			Help:      "Number of live per-user session coordinators",
		},
	)
)

// Join result labels
const (
	JoinJoined   = "joined"
	JoinRejoined = "rejoined"
	JoinFull     = "full"
	JoinNotFound = "not_found"
	JoinClosed   = "closed"
	JoinRemoved  = "removed"
	JoinError    = "error"
)
