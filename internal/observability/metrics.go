package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportbot_http_requests_total",
			Help: "Total number of HTTP requests, by matched route.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reportbot_http_request_duration_seconds",
			Help:    "HTTP request latency by matched route. /v1/ask includes the model call.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"method", "route", "status"},
	)
	pipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportbot_pipeline_requests_total",
			Help: "Total number of natural-language requests handled, by outcome.",
		},
		[]string{"outcome"},
	)
	pipelineRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportbot_pipeline_rejections_total",
			Help: "Total number of candidate queries rejected by the guard, by reason.",
		},
		[]string{"reason"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reportbot_query_duration_seconds",
			Help:    "Bounded query execution latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reportbot_query_rows_returned",
			Help:    "Rows fetched per bounded query.",
			Buckets: []float64{0, 1, 2, 5, 10, 15, 20, 50},
		},
	)
	monthlyCloseRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportbot_monthly_close_runs_total",
			Help: "Total number of monthly close runs, by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		pipelineRequestsTotal,
		pipelineRejectionsTotal,
		queryDurationSeconds,
		queryRowsReturned,
		monthlyCloseRunsTotal,
	)
}

func ObservePipelineOutcome(outcome string) {
	pipelineRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveRejection(reason string) {
	pipelineRejectionsTotal.WithLabelValues(reason).Inc()
}

func ObserveQuery(rows int, elapsed time.Duration) {
	if rows < 0 {
		rows = 0
	}
	queryDurationSeconds.Observe(elapsed.Seconds())
	queryRowsReturned.Observe(float64(rows))
}

func ObserveMonthlyClose(status string) {
	monthlyCloseRunsTotal.WithLabelValues(status).Inc()
}
