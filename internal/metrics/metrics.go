// Package metrics defines the Prometheus instrumentation shared by the
// extractor, the transform runner and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NWSAPICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weatherpipe_nws_api_calls_total",
		Help: "NWS API calls by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	NWSAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weatherpipe_nws_api_latency_seconds",
		Help:    "NWS API call latency by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weatherpipe_records_ingested_total",
		Help: "Raw rows inserted by the extractor, by table.",
	}, []string{"table"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weatherpipe_stage_duration_seconds",
		Help:    "Pipeline stage duration.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"stage"})

	StageRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "weatherpipe_stage_rows",
		Help: "Rows produced by the most recent run of each stage.",
	}, []string{"stage"})

	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weatherpipe_stage_failures_total",
		Help: "Pipeline stage failures.",
	}, []string{"stage"})

	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weatherpipe_http_requests_total",
		Help: "HTTP API requests by route and status class.",
	}, []string{"route", "status"})
)
