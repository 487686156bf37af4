// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the pipeline- and discovery-side metrics:
//   - Discovery sweep metrics (items discovered, sweep duration, errors)
//   - Ingestion pipeline metrics (runs by outcome, stage durations)
//
// HTTP request metrics are owned by internal/handler/http, and
// insight-generation metrics by internal/infra/insight, so that each
// binary registers only the collectors it actually drives.
//
// All metrics are automatically registered with the Prometheus default
// registry and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "insightfeed/internal/observability/metrics"
//
//	func sweepSource(src *entity.ContentSource) {
//	    start := time.Now()
//	    inserted := pullOne(src)
//	    metrics.RecordDiscoverySweep(src.ID, time.Since(start))
//	    metrics.RecordItemsDiscovered(src.Title, src.ID, inserted)
//	}
package metrics
