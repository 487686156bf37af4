package metrics

import (
	"fmt"
	"time"
)

// RecordItemsDiscovered records how many new queue rows one source
// sweep inserted. Zero-count sweeps are recorded too, so per-source
// activity is visible even when nothing new was found.
func RecordItemsDiscovered(sourceName string, sourceID int64, count int) {
	QueueItemsDiscoveredTotal.WithLabelValues(
		sourceName,
		fmt.Sprintf("%d", sourceID),
	).Add(float64(count))
}

// RecordDiscoverySweep records the duration of one source sweep.
func RecordDiscoverySweep(sourceID int64, duration time.Duration) {
	DiscoverySweepDuration.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
	).Observe(duration.Seconds())
}

// RecordDiscoverySweepError records a failed source sweep.
// errorType is a coarse classification ("fetch", "insert", "history").
func RecordDiscoverySweepError(sourceID int64, errorType string) {
	DiscoverySweepErrors.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
		errorType,
	).Inc()
}

// RecordPipelineRun records one ingestion run's terminal outcome.
// Outcome should be one of "completed", "duplicate", "error",
// "cancelled".
func RecordPipelineRun(outcome string) {
	PipelineRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordPipelineStage records time spent in one named pipeline stage
// (e.g. "fetch", "insights", "persist").
func RecordPipelineStage(stage string, duration time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}
