// Package metrics provides centralized Prometheus metrics for the
// ingestion pipeline and the discovery workers. HTTP-surface metrics
// live in internal/handler/http; this package covers the business
// side: discovery sweeps, queue inserts, and pipeline runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discovery metrics track the periodic pullers.
var (
	// QueueItemsDiscoveredTotal counts new content_queue rows inserted
	// per source.
	QueueItemsDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_items_discovered_total",
			Help: "Total number of new queue items discovered per source",
		},
		[]string{"source", "source_id"},
	)

	// DiscoverySweepDuration measures one source's sweep duration.
	DiscoverySweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_sweep_duration_seconds",
			Help:    "Time taken to sweep one content source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source_id"},
	)

	// DiscoverySweepErrors counts failed source sweeps by error type.
	DiscoverySweepErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_sweep_errors_total",
			Help: "Total number of discovery sweep errors",
		},
		[]string{"source_id", "error_type"},
	)
)

// Pipeline metrics track ingestion runs through the orchestrator.
var (
	// PipelineRunsTotal counts pipeline invocations by terminal outcome.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of ingestion pipeline runs by outcome",
		},
		[]string{"outcome"}, // outcome: completed, duplicate, error, cancelled
	)

	// PipelineStageDuration measures individual pipeline stage durations.
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Time spent in one pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"stage"},
	)
)
