// Package metrics defines the Prometheus collectors of the intake server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collaborator names used as label values.
const (
	CollaboratorExtraction = "extraction"
	CollaboratorReply      = "reply"
	CollaboratorPersist    = "persist"
	CollaboratorMail       = "mail"
)

var (
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_sessions_opened_total",
		Help: "Sessions created",
	})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_sessions_expired_total",
		Help: "Sessions removed by the idle sweep",
	})

	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_turns_total",
		Help: "Chat turns handled, by step after the turn",
	}, []string{"step"})

	Triage = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_triage_total",
		Help: "Triage results, by priority and strategy",
	}, []string{"priority", "source"})

	CollaboratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_collaborator_failures_total",
		Help: "External collaborator calls that failed and were recovered",
	}, []string{"collaborator"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intake_turn_duration_seconds",
		Help:    "Time to handle one chat turn",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
	})
)
