// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mdmc/smartlinks/internal/analytics"
	"github.com/mdmc/smartlinks/internal/metrics"
	"github.com/mdmc/smartlinks/internal/model"
	"github.com/mdmc/smartlinks/internal/repository"
)

// Service errors.
var (
	ErrLinkNotFound    = errors.New("smart link not found")
	ErrServiceNotFound = errors.New("service not found for smart link")
)

// UTM parameters appended to every resolved destination URL.
const (
	utmSource = "mdmc_smartlink"
	utmMedium = "click"

	// debugTrackingParam is the query parameter carrying the tracking ID
	// when debug tagging is enabled. Never set in production.
	debugTrackingParam = "mdmc_tid"
)

// LinkRepository is the destination lookup capability the service consumes.
type LinkRepository interface {
	GetDestination(ctx context.Context, smartlinkID, serviceName string) (string, error)
	GetSmartLink(ctx context.Context, id string) (*model.SmartLink, error)
}

// ClickRecorder persists click events and returns a tracking identifier.
type ClickRecorder interface {
	Record(ctx context.Context, event *model.ClickEvent) (string, error)
}

// DestinationCache caches destination URLs in front of the repository.
type DestinationCache interface {
	GetDestination(ctx context.Context, smartlinkID, serviceName string) (string, error)
	SetDestination(ctx context.Context, smartlinkID, serviceName, url string) error
	IsNegativelyCached(ctx context.Context, smartlinkID, serviceName string) (bool, error)
	SetNegativeCache(ctx context.Context, smartlinkID, serviceName string) error
}

// GeoResolver maps a client IP to a GeoRecord. Total: never errors.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) model.GeoRecord
}

// TrackService orchestrates the click-tracking pipeline.
type TrackService struct {
	links     LinkRepository
	clicks    ClickRecorder
	cache     DestinationCache
	geo       GeoResolver
	publisher *analytics.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger

	// tagTrackingID appends the tracking ID as a debug query parameter
	// on the destination URL. Must stay off in production.
	tagTrackingID bool
}

// TrackServiceConfig holds TrackService construction options.
// Cache and Publisher are optional; the pipeline works without them.
type TrackServiceConfig struct {
	Links         LinkRepository
	Clicks        ClickRecorder
	Cache         DestinationCache
	Geo           GeoResolver
	Publisher     *analytics.Publisher
	Metrics       metrics.Recorder
	Logger        *slog.Logger
	TagTrackingID bool
}

// NewTrackService creates a TrackService from cfg.
func NewTrackService(cfg TrackServiceConfig) *TrackService {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TrackService{
		links:         cfg.Links,
		clicks:        cfg.Clicks,
		cache:         cfg.Cache,
		geo:           cfg.Geo,
		publisher:     cfg.Publisher,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger.With("component", "service.track"),
		tagTrackingID: cfg.TagTrackingID,
	}
}

// TrackClickInput is the validated input for one click.
type TrackClickInput struct {
	SmartlinkID        string
	ServiceName        string
	ServiceDisplayName string
	UserAgent          string
	SessionID          string
	ClientIP           string
	ClickedAt          time.Time
}

// TrackResult is the outcome of a successfully tracked click.
type TrackResult struct {
	DestinationURL string
	TrackingID     string
	Geo            model.GeoRecord
}

// TrackClick runs the pipeline: geolocate, resolve destination, record the
// click, build the final URL. Not-found maps to ErrServiceNotFound; any
// other failure is an internal error. A click is only reported as tracked
// when the recorder succeeded.
func (s *TrackService) TrackClick(ctx context.Context, input TrackClickInput) (*TrackResult, error) {
	start := time.Now()

	geoRecord := s.geo.Resolve(ctx, input.ClientIP)

	destination, err := s.resolveDestination(ctx, input.SmartlinkID, input.ServiceName)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			s.metrics.IncClickTracked("not_found")
		} else {
			s.metrics.IncClickTracked("error")
		}
		return nil, err
	}

	event := &model.ClickEvent{
		SmartlinkID:        input.SmartlinkID,
		ServiceName:        input.ServiceName,
		ServiceDisplayName: input.ServiceDisplayName,
		UserAgent:          analytics.TruncateUserAgent(input.UserAgent),
		SessionID:          input.SessionID,
		Geo:                geoRecord,
		VisitorHash:        analytics.GenerateVisitorHash(geoRecord.IP, input.UserAgent, input.ClickedAt),
		ClickedAt:          input.ClickedAt,
	}

	trackingID, err := s.clicks.Record(ctx, event)
	if err != nil {
		s.metrics.IncClickTracked("error")
		return nil, fmt.Errorf("record click: %w", err)
	}

	finalURL, err := s.buildDestinationURL(destination, input.SmartlinkID, input.ServiceName, trackingID)
	if err != nil {
		s.metrics.IncClickTracked("error")
		return nil, fmt.Errorf("build destination URL: %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishAsync(analytics.ClickEventPayload{
			SmartlinkID: input.SmartlinkID,
			ServiceName: input.ServiceName,
			TrackingID:  trackingID,
			CountryCode: countryCodeForStats(geoRecord),
			VisitorHash: event.VisitorHash,
			ClickedAt:   input.ClickedAt.UnixMilli(),
		})
	}

	s.metrics.IncClickTracked("success")
	s.metrics.ObserveTrackDuration(time.Since(start))

	s.logger.Info("click_tracked",
		"smartlink_id", input.SmartlinkID,
		"service", input.ServiceName,
		"country", geoRecord.CountryCode,
		"tracking_id", trackingID,
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)

	return &TrackResult{
		DestinationURL: finalURL,
		TrackingID:     trackingID,
		Geo:            geoRecord,
	}, nil
}

// resolveDestination looks up the destination URL through the cache-aside
// layer when a cache is configured. Cache failures degrade to the
// repository; they never fail the request.
func (s *TrackService) resolveDestination(ctx context.Context, smartlinkID, serviceName string) (string, error) {
	if s.cache != nil {
		if destination, err := s.cache.GetDestination(ctx, smartlinkID, serviceName); err == nil {
			s.metrics.IncDestinationCacheHit()
			return destination, nil
		}

		if negative, err := s.cache.IsNegativelyCached(ctx, smartlinkID, serviceName); err == nil && negative {
			s.metrics.IncDestinationCacheHit()
			return "", ErrServiceNotFound
		}

		s.metrics.IncDestinationCacheMiss()
	}

	destination, err := s.links.GetDestination(ctx, smartlinkID, serviceName)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			if s.cache != nil {
				if cacheErr := s.cache.SetNegativeCache(ctx, smartlinkID, serviceName); cacheErr != nil {
					s.logger.Warn("failed to set negative cache", "error", cacheErr)
				}
			}
			return "", ErrServiceNotFound
		}
		return "", fmt.Errorf("destination lookup: %w", err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetDestination(ctx, smartlinkID, serviceName, destination); cacheErr != nil {
			s.logger.Warn("failed to cache destination", "error", cacheErr)
		}
	}

	return destination, nil
}

// buildDestinationURL appends UTM attribution parameters to the stored
// destination, preserving host, path, and any pre-existing query.
func (s *TrackService) buildDestinationURL(destination, smartlinkID, serviceName, trackingID string) (string, error) {
	parsed, err := url.Parse(destination)
	if err != nil {
		return "", fmt.Errorf("parse destination %q: %w", destination, err)
	}

	query := parsed.Query()
	query.Set("utm_source", utmSource)
	query.Set("utm_medium", utmMedium)
	query.Set("utm_campaign", smartlinkID)
	query.Set("utm_content", serviceName)
	if s.tagTrackingID {
		query.Set(debugTrackingParam, trackingID)
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// countryCodeForStats returns the country code for aggregation, dropping
// the sentinel so unknown clicks don't pollute the breakdown.
func countryCodeForStats(geoRecord model.GeoRecord) string {
	if geoRecord.CountryCode == model.UnknownCountryCode {
		return ""
	}
	return geoRecord.CountryCode
}
