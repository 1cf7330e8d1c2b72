// Package metrics holds the prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "challenges",
		Name:      "phase_transitions_total",
		Help:      "Challenge status changes, by target status.",
	}, []string{"to"})

	StaleTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "challenges",
		Name:      "stale_transitions_total",
		Help:      "Scheduled transitions dropped because the challenge had already moved on.",
	})

	Joins = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "challenges",
		Name:      "participants_joined_total",
		Help:      "Successful challenge joins.",
	})

	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "challenges",
		Name:      "submissions_total",
		Help:      "Accepted submissions.",
	})

	Votes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "challenges",
		Name:      "votes_total",
		Help:      "Accepted community votes.",
	})

	Payouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "challenges",
		Name:      "prize_payouts_total",
		Help:      "Prize distribution settlements, by outcome.",
	}, []string{"status"})

	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "challenges",
		Name:      "scheduler_sweeps_total",
		Help:      "Phase scheduler sweep executions.",
	})
)
