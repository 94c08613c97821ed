package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mdmc/smartlinks/internal/model"
	"github.com/mdmc/smartlinks/internal/repository"
)

const testSmartlinkID = "507f1f77bcf86cd799439011"

type stubLinks struct {
	destination string
	err         error
	calls       int
}

func (s *stubLinks) GetDestination(_ context.Context, smartlinkID, serviceName string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.destination, nil
}

func (s *stubLinks) GetSmartLink(_ context.Context, id string) (*model.SmartLink, error) {
	return nil, repository.ErrLinkNotFound
}

type stubClicks struct {
	trackingID string
	err        error
	events     []*model.ClickEvent
}

func (s *stubClicks) Record(_ context.Context, event *model.ClickEvent) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.events = append(s.events, event)
	return s.trackingID, nil
}

type stubGeo struct {
	record model.GeoRecord
}

func (s *stubGeo) Resolve(_ context.Context, ip string) model.GeoRecord {
	if s.record.IP == "" {
		return model.UnknownGeoRecord(ip)
	}
	return s.record
}

// memCache is an in-memory DestinationCache recording operations.
type memCache struct {
	destinations map[string]string
	negatives    map[string]bool
	getErr       error
}

func newMemCache() *memCache {
	return &memCache{
		destinations: make(map[string]string),
		negatives:    make(map[string]bool),
	}
}

func (c *memCache) key(id, svc string) string { return id + "/" + svc }

func (c *memCache) GetDestination(_ context.Context, id, svc string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	if dest, ok := c.destinations[c.key(id, svc)]; ok {
		return dest, nil
	}
	return "", errors.New("cache miss")
}

func (c *memCache) SetDestination(_ context.Context, id, svc, dest string) error {
	c.destinations[c.key(id, svc)] = dest
	return nil
}

func (c *memCache) IsNegativelyCached(_ context.Context, id, svc string) (bool, error) {
	return c.negatives[c.key(id, svc)], nil
}

func (c *memCache) SetNegativeCache(_ context.Context, id, svc string) error {
	c.negatives[c.key(id, svc)] = true
	return nil
}

func newService(links LinkRepository, clicks ClickRecorder, cache DestinationCache) *TrackService {
	return NewTrackService(TrackServiceConfig{
		Links:  links,
		Clicks: clicks,
		Cache:  cache,
		Geo:    &stubGeo{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func testInput() TrackClickInput {
	return TrackClickInput{
		SmartlinkID: testSmartlinkID,
		ServiceName: "spotify",
		UserAgent:   "Mozilla/5.0",
		ClientIP:    "203.0.113.7",
		ClickedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTrackClick_Success(t *testing.T) {
	links := &stubLinks{destination: "https://open.spotify.com/album/xyz"}
	clicks := &stubClicks{trackingID: "01J8ZC3V9K4T5M6N7P8Q9R0S1T"}
	svc := newService(links, clicks, nil)

	result, err := svc.TrackClick(context.Background(), testInput())
	if err != nil {
		t.Fatalf("TrackClick() error: %v", err)
	}

	if result.TrackingID != "01J8ZC3V9K4T5M6N7P8Q9R0S1T" {
		t.Errorf("unexpected tracking ID: %s", result.TrackingID)
	}

	parsed, err := url.Parse(result.DestinationURL)
	if err != nil {
		t.Fatalf("destination URL unparsable: %v", err)
	}
	q := parsed.Query()
	if q.Get("utm_source") != "mdmc_smartlink" {
		t.Errorf("utm_source = %q", q.Get("utm_source"))
	}
	if q.Get("utm_medium") != "click" {
		t.Errorf("utm_medium = %q", q.Get("utm_medium"))
	}
	if q.Get("utm_campaign") != testSmartlinkID {
		t.Errorf("utm_campaign = %q", q.Get("utm_campaign"))
	}
	if q.Get("utm_content") != "spotify" {
		t.Errorf("utm_content = %q", q.Get("utm_content"))
	}
	if q.Has("mdmc_tid") {
		t.Error("tracking ID must not be tagged by default")
	}

	if len(clicks.events) != 1 {
		t.Fatalf("expected 1 recorded event, got %d", len(clicks.events))
	}
	event := clicks.events[0]
	if event.VisitorHash == "" {
		t.Error("expected visitor hash on recorded event")
	}
	if event.Geo.CountryCode == "" {
		t.Error("expected populated geo record on recorded event")
	}
}

func TestTrackClick_RecorderFailureFailsRequest(t *testing.T) {
	links := &stubLinks{destination: "https://open.spotify.com/album/xyz"}
	clicks := &stubClicks{err: errors.New("insert failed")}
	svc := newService(links, clicks, nil)

	result, err := svc.TrackClick(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected error when recorder fails")
	}
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
}

func TestTrackClick_ServiceNotFound(t *testing.T) {
	links := &stubLinks{err: repository.ErrServiceNotFound}
	clicks := &stubClicks{trackingID: "x"}
	svc := newService(links, clicks, nil)

	_, err := svc.TrackClick(context.Background(), testInput())
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
	if len(clicks.events) != 0 {
		t.Error("expected no click recorded for unknown service")
	}
}

func TestTrackClick_CacheAside(t *testing.T) {
	links := &stubLinks{destination: "https://open.spotify.com/album/xyz"}
	clicks := &stubClicks{trackingID: "x"}
	cache := newMemCache()
	svc := newService(links, clicks, cache)

	for i := 0; i < 3; i++ {
		if _, err := svc.TrackClick(context.Background(), testInput()); err != nil {
			t.Fatalf("TrackClick() error: %v", err)
		}
	}

	if links.calls != 1 {
		t.Errorf("expected 1 repository lookup with warm cache, got %d", links.calls)
	}
}

func TestTrackClick_NegativeCache(t *testing.T) {
	links := &stubLinks{err: repository.ErrServiceNotFound}
	clicks := &stubClicks{trackingID: "x"}
	cache := newMemCache()
	svc := newService(links, clicks, cache)

	for i := 0; i < 3; i++ {
		if _, err := svc.TrackClick(context.Background(), testInput()); !errors.Is(err, ErrServiceNotFound) {
			t.Fatalf("expected ErrServiceNotFound, got %v", err)
		}
	}

	if links.calls != 1 {
		t.Errorf("expected 1 repository lookup with negative cache, got %d", links.calls)
	}
}

func TestTrackClick_CacheErrorDegradesToRepository(t *testing.T) {
	links := &stubLinks{destination: "https://open.spotify.com/album/xyz"}
	clicks := &stubClicks{trackingID: "x"}
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	svc := newService(links, clicks, cache)

	result, err := svc.TrackClick(context.Background(), testInput())
	if err != nil {
		t.Fatalf("expected cache failure to degrade, got %v", err)
	}
	if result.DestinationURL == "" {
		t.Error("expected destination despite cache failure")
	}
}

func TestBuildDestinationURL_PreservesExistingQuery(t *testing.T) {
	svc := newService(&stubLinks{}, &stubClicks{}, nil)

	got, err := svc.buildDestinationURL("https://youtube.com/watch?v=abc&list=xyz", testSmartlinkID, "youtube", "tid")
	if err != nil {
		t.Fatalf("buildDestinationURL() error: %v", err)
	}

	parsed, _ := url.Parse(got)
	q := parsed.Query()
	if q.Get("v") != "abc" || q.Get("list") != "xyz" {
		t.Errorf("existing query lost: %s", got)
	}
	if q.Get("utm_source") != "mdmc_smartlink" {
		t.Errorf("utm_source missing: %s", got)
	}
}

func TestBuildDestinationURL_DebugTagging(t *testing.T) {
	svc := newService(&stubLinks{}, &stubClicks{}, nil)
	svc.tagTrackingID = true

	got, err := svc.buildDestinationURL("https://example.com/a", testSmartlinkID, "spotify", "tid-42")
	if err != nil {
		t.Fatalf("buildDestinationURL() error: %v", err)
	}
	if !strings.Contains(got, "mdmc_tid=tid-42") {
		t.Errorf("expected debug param, got %s", got)
	}
}

func TestCountryCodeForStats(t *testing.T) {
	if got := countryCodeForStats(model.GeoRecord{CountryCode: "FR"}); got != "FR" {
		t.Errorf("expected FR, got %q", got)
	}
	if got := countryCodeForStats(model.UnknownGeoRecord("1.2.3.4")); got != "" {
		t.Errorf("expected empty for sentinel, got %q", got)
	}
}
