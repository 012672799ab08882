package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec
	rollupStageTotal   *prometheus.CounterVec
	rollupStageSeconds *prometheus.HistogramVec
	completionsTotal   *prometheus.CounterVec
	quizAttemptsTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		rollupStageTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_progress_rollup_total",
			Help: "Roll-up stage executions by outcome.",
		}, []string{"stage", "outcome"})

		rollupStageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_progress_rollup_seconds",
			Help:    "Duration of each roll-up stage.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}, []string{"stage"})

		completionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_completions_total",
			Help: "Lesson and course completion transitions.",
		}, []string{"level"})

		quizAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_quiz_attempts_total",
			Help: "Graded quiz attempts by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			rollupStageTotal, rollupStageSeconds,
			completionsTotal, quizAttemptsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// RollupStages exposes the roll-up stage outcome counter.
func RollupStages() *prometheus.CounterVec {
	RegisterMetrics()
	return rollupStageTotal
}

// RollupDuration exposes the roll-up stage duration histogram.
func RollupDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return rollupStageSeconds
}

// Completions exposes the completion transition counter.
func Completions() *prometheus.CounterVec {
	RegisterMetrics()
	return completionsTotal
}

// QuizAttempts exposes the graded quiz attempt counter.
func QuizAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return quizAttemptsTotal
}
