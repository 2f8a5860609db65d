package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttemptsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ujian_attempts_started_total",
			Help: "Total number of exam attempts that entered the timed phase",
		},
		[]string{"course"},
	)

	AttemptsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ujian_attempts_finished_total",
			Help: "Total number of exam attempts by terminal state",
		},
		[]string{"course", "state"},
	)

	ScoreHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ujian_score",
			Help:    "Distribution of graded exam scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"course"},
	)

	QuestionsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ujian_questions_imported_total",
			Help: "Total number of questions stored through upload or manual entry",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ujian_active_sessions",
			Help: "Number of signed-in sessions held in memory",
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ujian_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
