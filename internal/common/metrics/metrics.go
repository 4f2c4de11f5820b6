// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_turns_total",
			Help: "Completed conversation turns by screen and reply source",
		},
		[]string{"screen", "source"},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_fallbacks_total",
			Help: "Turns answered locally, by reason",
		},
		[]string{"reason"},
	)

	RemoteAIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_remote_ai_duration_seconds",
			Help:    "Latency of remote AI calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15},
		},
		[]string{"outcome"},
	)

	StuckInterventions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_stuck_interventions_total",
			Help: "Turns short-circuited by stuck detection, by repeated intent",
		},
		[]string{"intent"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
