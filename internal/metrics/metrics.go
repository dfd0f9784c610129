// Package metrics holds the Prometheus collectors of the table server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaptable_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leaptable_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// TableRequests counts data requests by table and outcome.
	TableRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaptable_table_requests_total",
			Help: "Total number of table data requests",
		},
		[]string{"table", "outcome"},
	)
	// ExportsTotal counts exports by format and mode (sync or deferred).
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaptable_exports_total",
			Help: "Total number of exports",
		},
		[]string{"format", "mode"},
	)
	// ExportJobs counts finished background export jobs by status.
	ExportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaptable_export_jobs_total",
			Help: "Total number of finished background export jobs",
		},
		[]string{"format", "status"},
	)
	// ExportJobDuration is the run time of background export jobs.
	ExportJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leaptable_export_job_duration_seconds",
			Help:    "Background export job run time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)
