package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	GeoCacheHits           uint64
	GeoCacheMisses         uint64
	GeoLookups             map[string]uint64 // keyed provider:status
	ClicksTracked          map[string]uint64 // keyed by status
	AnalyticsPublished     map[string]uint64 // keyed by status
	TrackDurationCount     uint64
	TrackDurationTotalNs   int64
	DestinationCacheHits   uint64
	DestinationCacheMisses uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	geoCacheHits           uint64
	geoCacheMisses         uint64
	trackDurationCount     uint64
	trackDurationTotalNs   int64
	destinationCacheHits   uint64
	destinationCacheMisses uint64

	mu                 sync.Mutex
	geoLookups         map[string]uint64
	clicksTracked      map[string]uint64
	analyticsPublished map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		geoLookups:         make(map[string]uint64),
		clicksTracked:      make(map[string]uint64),
		analyticsPublished: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	lookups := make(map[string]uint64, len(m.geoLookups))
	for k, v := range m.geoLookups {
		lookups[k] = v
	}
	clicks := make(map[string]uint64, len(m.clicksTracked))
	for k, v := range m.clicksTracked {
		clicks[k] = v
	}
	published := make(map[string]uint64, len(m.analyticsPublished))
	for k, v := range m.analyticsPublished {
		published[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		GeoCacheHits:           atomic.LoadUint64(&m.geoCacheHits),
		GeoCacheMisses:         atomic.LoadUint64(&m.geoCacheMisses),
		GeoLookups:             lookups,
		ClicksTracked:          clicks,
		AnalyticsPublished:     published,
		TrackDurationCount:     atomic.LoadUint64(&m.trackDurationCount),
		TrackDurationTotalNs:   atomic.LoadInt64(&m.trackDurationTotalNs),
		DestinationCacheHits:   atomic.LoadUint64(&m.destinationCacheHits),
		DestinationCacheMisses: atomic.LoadUint64(&m.destinationCacheMisses),
	}
}

// IncGeoCacheHit increments the geo cache hit counter.
func (m *InMemoryRecorder) IncGeoCacheHit() {
	atomic.AddUint64(&m.geoCacheHits, 1)
}

// IncGeoCacheMiss increments the geo cache miss counter.
func (m *InMemoryRecorder) IncGeoCacheMiss() {
	atomic.AddUint64(&m.geoCacheMisses, 1)
}

// IncGeoLookup counts a provider lookup outcome.
func (m *InMemoryRecorder) IncGeoLookup(provider, status string) {
	m.mu.Lock()
	m.geoLookups[provider+":"+status]++
	m.mu.Unlock()
}

// ObserveGeoLookupDuration is a no-op for the in-memory recorder.
func (m *InMemoryRecorder) ObserveGeoLookupDuration(provider string, duration time.Duration) {}

// IncClickTracked counts a tracked click by outcome.
func (m *InMemoryRecorder) IncClickTracked(status string) {
	m.mu.Lock()
	m.clicksTracked[status]++
	m.mu.Unlock()
}

// ObserveTrackDuration records click pipeline duration.
func (m *InMemoryRecorder) ObserveTrackDuration(duration time.Duration) {
	atomic.AddUint64(&m.trackDurationCount, 1)
	atomic.AddInt64(&m.trackDurationTotalNs, duration.Nanoseconds())
}

// IncDestinationCacheHit increments the destination cache hit counter.
func (m *InMemoryRecorder) IncDestinationCacheHit() {
	atomic.AddUint64(&m.destinationCacheHits, 1)
}

// IncDestinationCacheMiss increments the destination cache miss counter.
func (m *InMemoryRecorder) IncDestinationCacheMiss() {
	atomic.AddUint64(&m.destinationCacheMisses, 1)
}

// IncAnalyticsEventPublished counts a published analytics event by status.
func (m *InMemoryRecorder) IncAnalyticsEventPublished(status string) {
	m.mu.Lock()
	m.analyticsPublished[status]++
	m.mu.Unlock()
}

// IncAnalyticsEventProcessed is a no-op for the in-memory recorder.
func (m *InMemoryRecorder) IncAnalyticsEventProcessed(status string) {}

// ObserveAnalyticsBatchSize is a no-op for the in-memory recorder.
func (m *InMemoryRecorder) ObserveAnalyticsBatchSize(size int) {}

// ObserveAnalyticsBatchDuration is a no-op for the in-memory recorder.
func (m *InMemoryRecorder) ObserveAnalyticsBatchDuration(duration time.Duration) {}

// SetAnalyticsQueueDepth is a no-op for the in-memory recorder.
func (m *InMemoryRecorder) SetAnalyticsQueueDepth(depth int64) {}
