// Package telemetry provides Prometheus metrics for the media store and the
// content pipeline.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Media store
	ObjectsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_objects_stored_total",
		Help: "Number of media objects persisted",
	})
	ObjectsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_objects_evicted_total",
		Help: "Number of media objects evicted (scheduled or explicit)",
	})
	ObjectsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_objects_served_total",
		Help: "Number of successful signed media fetches",
	})
	ObjectsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_objects_denied_total",
		Help: "Number of media fetches rejected for a bad token",
	})
	ObjectsNotFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_objects_not_found_total",
		Help: "Number of media fetches for missing or evicted objects",
	})

	// Pipeline
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Pipeline runs by terminal outcome",
	}, []string{"outcome"})
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_failures_total",
		Help: "Stage failures by stage, including non-fatal degradations",
	}, []string{"stage"})
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_run_duration_seconds",
		Help:    "End-to-end pipeline run duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveRun records one finished pipeline run.
func ObserveRun(outcome string, d time.Duration) {
	PipelineRuns.WithLabelValues(outcome).Inc()
	RunDuration.Observe(d.Seconds())
}
