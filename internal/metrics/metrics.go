package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnswersTotal counts processed answers by verdict.
	AnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_answers_total",
			Help: "Total number of answers processed",
		},
		[]string{"result"}, // result: correct/incorrect
	)

	// CommitsTotal counts intent commits against the learning backend.
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_commits_total",
			Help: "Total number of intent commits",
		},
		[]string{"intent", "status"}, // status: ok/rolled_back/noop
	)

	// CommitDuration measures backend round trips for commits.
	CommitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "practice_commit_duration_seconds",
			Help:    "Time spent committing intents to the backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"intent"},
	)

	// SessionsActive tracks currently open practice sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "practice_sessions_active_current",
			Help: "Current number of active practice sessions",
		},
	)

	// HeartsExhaustedTotal counts sessions that ran out of hearts.
	HeartsExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "practice_hearts_exhausted_total",
			Help: "Total number of hearts-exhausted terminations",
		},
	)
)
