package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder backed by Prometheus collectors.
type PrometheusRecorder struct {
	geoCacheOps        *prometheus.CounterVec
	geoLookups         *prometheus.CounterVec
	geoLookupDuration  *prometheus.HistogramVec
	clicksTracked      *prometheus.CounterVec
	trackDuration      prometheus.Histogram
	destinationCache   *prometheus.CounterVec
	analyticsPublished *prometheus.CounterVec
	analyticsProcessed *prometheus.CounterVec
	analyticsBatchSize prometheus.Histogram
	analyticsBatchTime prometheus.Histogram
	analyticsQueue     prometheus.Gauge
}

// NewPrometheus creates a PrometheusRecorder and registers its collectors
// on reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		geoCacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartlinks",
			Name:      "geo_cache_ops_total",
			Help:      "Geolocation cache lookups by result.",
		}, []string{"result"}),
		geoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartlinks",
			Name:      "geo_lookups_total",
			Help:      "Geolocation provider lookups by provider and status.",
		}, []string{"provider", "status"}),
		geoLookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smartlinks",
			Name:      "geo_lookup_duration_seconds",
			Help:      "Geolocation provider call duration.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"provider"}),
		clicksTracked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartlinks",
			Name:      "clicks_tracked_total",
			Help:      "Click tracking requests by outcome.",
		}, []string{"status"}),
		trackDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartlinks",
			Name:      "track_duration_seconds",
			Help:      "End-to-end click tracking pipeline duration.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 5},
		}),
		destinationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartlinks",
			Name:      "destination_cache_ops_total",
			Help:      "Destination URL cache lookups by result.",
		}, []string{"result"}),
		analyticsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartlinks",
			Name:      "analytics_events_published_total",
			Help:      "Analytics events published to the stream by status.",
		}, []string{"status"}),
		analyticsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartlinks",
			Name:      "analytics_events_processed_total",
			Help:      "Analytics events processed by the worker by status.",
		}, []string{"status"}),
		analyticsBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartlinks",
			Name:      "analytics_batch_size",
			Help:      "Events per processed analytics batch.",
			Buckets:   []float64{1, 10, 50, 100, 250, 500},
		}),
		analyticsBatchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartlinks",
			Name:      "analytics_batch_duration_seconds",
			Help:      "Analytics batch processing duration.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		analyticsQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "smartlinks",
			Name:      "analytics_queue_depth",
			Help:      "Pending plus unread events on the analytics stream.",
		}),
	}

	reg.MustRegister(
		r.geoCacheOps,
		r.geoLookups,
		r.geoLookupDuration,
		r.clicksTracked,
		r.trackDuration,
		r.destinationCache,
		r.analyticsPublished,
		r.analyticsProcessed,
		r.analyticsBatchSize,
		r.analyticsBatchTime,
		r.analyticsQueue,
	)

	return r
}

// IncGeoCacheHit counts a geo cache hit.
func (r *PrometheusRecorder) IncGeoCacheHit() {
	r.geoCacheOps.WithLabelValues("hit").Inc()
}

// IncGeoCacheMiss counts a geo cache miss.
func (r *PrometheusRecorder) IncGeoCacheMiss() {
	r.geoCacheOps.WithLabelValues("miss").Inc()
}

// IncGeoLookup counts a provider lookup outcome.
func (r *PrometheusRecorder) IncGeoLookup(provider, status string) {
	r.geoLookups.WithLabelValues(provider, status).Inc()
}

// ObserveGeoLookupDuration records provider call duration.
func (r *PrometheusRecorder) ObserveGeoLookupDuration(provider string, duration time.Duration) {
	r.geoLookupDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// IncClickTracked counts a tracked click by outcome.
func (r *PrometheusRecorder) IncClickTracked(status string) {
	r.clicksTracked.WithLabelValues(status).Inc()
}

// ObserveTrackDuration records click pipeline duration.
func (r *PrometheusRecorder) ObserveTrackDuration(duration time.Duration) {
	r.trackDuration.Observe(duration.Seconds())
}

// IncDestinationCacheHit counts a destination cache hit.
func (r *PrometheusRecorder) IncDestinationCacheHit() {
	r.destinationCache.WithLabelValues("hit").Inc()
}

// IncDestinationCacheMiss counts a destination cache miss.
func (r *PrometheusRecorder) IncDestinationCacheMiss() {
	r.destinationCache.WithLabelValues("miss").Inc()
}

// IncAnalyticsEventPublished counts a published analytics event.
func (r *PrometheusRecorder) IncAnalyticsEventPublished(status string) {
	r.analyticsPublished.WithLabelValues(status).Inc()
}

// IncAnalyticsEventProcessed counts a processed analytics event.
func (r *PrometheusRecorder) IncAnalyticsEventProcessed(status string) {
	r.analyticsProcessed.WithLabelValues(status).Inc()
}

// ObserveAnalyticsBatchSize records the size of a processed batch.
func (r *PrometheusRecorder) ObserveAnalyticsBatchSize(size int) {
	r.analyticsBatchSize.Observe(float64(size))
}

// ObserveAnalyticsBatchDuration records batch processing duration.
func (r *PrometheusRecorder) ObserveAnalyticsBatchDuration(duration time.Duration) {
	r.analyticsBatchTime.Observe(duration.Seconds())
}

// SetAnalyticsQueueDepth sets the stream backlog gauge.
func (r *PrometheusRecorder) SetAnalyticsQueueDepth(depth int64) {
	r.analyticsQueue.Set(float64(depth))
}
