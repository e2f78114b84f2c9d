// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	GenAIProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_provider_requests_total",
			Help: "Generation provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	GenAIProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genai_provider_duration_seconds",
			Help:    "Generation provider call latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Ephemeral cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	TMDBRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_requests_total",
			Help: "Metadata API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	RerankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rerank_duration_seconds",
			Help:    "Time spent scoring candidates",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
)

// CacheResult labels a lookup as "hit" or "miss".
func CacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
