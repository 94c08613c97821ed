package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncGeoCacheHit is a no-op.
func (n *NoopRecorder) IncGeoCacheHit() {}

// IncGeoCacheMiss is a no-op.
func (n *NoopRecorder) IncGeoCacheMiss() {}

// IncGeoLookup is a no-op.
func (n *NoopRecorder) IncGeoLookup(provider, status string) {}

// ObserveGeoLookupDuration is a no-op.
func (n *NoopRecorder) ObserveGeoLookupDuration(provider string, duration time.Duration) {}

// IncClickTracked is a no-op.
func (n *NoopRecorder) IncClickTracked(status string) {}

// ObserveTrackDuration is a no-op.
func (n *NoopRecorder) ObserveTrackDuration(duration time.Duration) {}

// IncDestinationCacheHit is a no-op.
func (n *NoopRecorder) IncDestinationCacheHit() {}

// IncDestinationCacheMiss is a no-op.
func (n *NoopRecorder) IncDestinationCacheMiss() {}

// IncAnalyticsEventPublished is a no-op.
func (n *NoopRecorder) IncAnalyticsEventPublished(status string) {}

// IncAnalyticsEventProcessed is a no-op.
func (n *NoopRecorder) IncAnalyticsEventProcessed(status string) {}

// ObserveAnalyticsBatchSize is a no-op.
func (n *NoopRecorder) ObserveAnalyticsBatchSize(size int) {}

// ObserveAnalyticsBatchDuration is a no-op.
func (n *NoopRecorder) ObserveAnalyticsBatchDuration(duration time.Duration) {}

// SetAnalyticsQueueDepth is a no-op.
func (n *NoopRecorder) SetAnalyticsQueueDepth(depth int64) {}
