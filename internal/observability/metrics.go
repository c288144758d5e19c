// Package observability holds the Prometheus collectors exported on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeInputError  = "input_error"
	OutcomeOutputError = "output_error"
	OutcomeBusy        = "busy"
	OutcomeError       = "error"
)

var (
	// total HTTP requests per route, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spids_requests_total",
			Help: "Total HTTP requests received",
		},
		[]string{"route", "method", "status"},
	)

	// request latency in seconds per route/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spids_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// extraction runs labelled by outcome
	RunCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spids_runs_total",
			Help: "Total extraction runs",
		},
		[]string{"outcome"},
	)

	// wall time of a full run: read, classify and write
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spids_run_duration_seconds",
			Help:    "Duration of extraction runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// input rows read from bulk sheets
	InputRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spids_input_rows_total",
			Help: "Total bulk-sheet rows classified",
		},
	)

	// rows written per output table
	TableRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spids_table_rows_total",
			Help: "Total rows written per output table",
		},
		[]string{"table"},
	)

	// runs where the targeting column was absent
	TargetingColumnMissing = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spids_targeting_column_missing_total",
			Help: "Runs whose input had no targeting expression column",
		},
	)

	// extractions currently holding a limiter slot
	ActiveRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "spids_active_runs",
			Help: "Extractions currently running",
		},
	)

	// failed writes to the run-history store
	HistoryErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spids_history_errors_total",
			Help: "Total run-history persistence errors",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		RunCount,
		RunDuration,
		InputRows,
		TableRows,
		TargetingColumnMissing,
		ActiveRuns,
		HistoryErrors,
	)
}
