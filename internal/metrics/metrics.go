// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Geolocation metrics
	IncGeoCacheHit()
	IncGeoCacheMiss()
	IncGeoLookup(provider, status string) // status: "success", "error", "fallback"
	ObserveGeoLookupDuration(provider string, duration time.Duration)

	// Click tracking metrics
	IncClickTracked(status string) // status: "success", "not_found", "invalid", "error"
	ObserveTrackDuration(duration time.Duration)

	// Destination cache metrics
	IncDestinationCacheHit()
	IncDestinationCacheMiss()

	// Analytics pipeline metrics
	IncAnalyticsEventPublished(status string) // status: "success" or "dropped"
	IncAnalyticsEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAnalyticsBatchSize(size int)
	ObserveAnalyticsBatchDuration(duration time.Duration)
	SetAnalyticsQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
