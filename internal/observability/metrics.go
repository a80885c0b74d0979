package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	gradingRunsTotal      *prometheus.CounterVec
	submissionsStored     prometheus.Counter
	gradeSummaryCacheHits *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors served on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sotest_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sotest_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sotest_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sotest_grading_runs_total",
			Help: "Feedback and scoring runs by outcome.",
		}, []string{"mode", "outcome"})

		submissionsStored = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sotest_submissions_stored_total",
			Help: "Number of submissions written to storage.",
		})

		gradeSummaryCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sotest_grade_summary_cache_total",
			Help: "Grade summary cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, gradingRunsTotal, submissionsStored, gradeSummaryCacheHits)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradingRuns counts judge runs labelled by mode and outcome.
func GradingRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRunsTotal
}

// SubmissionsStored counts stored submissions.
func SubmissionsStored() prometheus.Counter {
	RegisterMetrics()
	return submissionsStored
}

// GradeSummaryCache counts summary cache hits and misses.
func GradeSummaryCache() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeSummaryCacheHits
}
