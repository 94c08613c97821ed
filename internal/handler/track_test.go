package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mdmc/smartlinks/internal/handler/dto"
	"github.com/mdmc/smartlinks/internal/model"
	"github.com/mdmc/smartlinks/internal/repository"
	"github.com/mdmc/smartlinks/internal/service"
)

const testSmartlinkID = "507f1f77bcf86cd799439011"

type fakeLinks struct {
	destinations map[string]string
	err          error
}

func (f *fakeLinks) GetDestination(_ context.Context, smartlinkID, serviceName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	dest, ok := f.destinations[smartlinkID+"/"+serviceName]
	if !ok {
		return "", repository.ErrServiceNotFound
	}
	return dest, nil
}

func (f *fakeLinks) GetSmartLink(_ context.Context, id string) (*model.SmartLink, error) {
	return nil, repository.ErrLinkNotFound
}

type fakeClicks struct {
	trackingID string
	err        error
	recorded   []*model.ClickEvent
}

func (f *fakeClicks) Record(_ context.Context, event *model.ClickEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.recorded = append(f.recorded, event)
	return f.trackingID, nil
}

type fakeGeo struct {
	record model.GeoRecord
}

func (f *fakeGeo) Resolve(_ context.Context, ip string) model.GeoRecord {
	if f.record.IP == "" {
		return model.UnknownGeoRecord(ip)
	}
	return f.record
}

func newTestTrackHandler(links *fakeLinks, clicks *fakeClicks) *TrackHandler {
	svc := service.NewTrackService(service.TrackServiceConfig{
		Links:  links,
		Clicks: clicks,
		Geo:    &fakeGeo{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return NewTrackHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), 0, false)
}

func trackRequest(method, body string) *httptest.ResponseRecorder {
	links := &fakeLinks{destinations: map[string]string{
		testSmartlinkID + "/spotify": "https://open.spotify.com/album/xyz",
	}}
	clicks := &fakeClicks{trackingID: "01J8ZC3V9K4T5M6N7P8Q9R0S1T"}
	h := newTestTrackHandler(links, clicks)

	req := httptest.NewRequest(method, "/api/track/click", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.TrackClick(rec, req)
	return rec
}

func decodeTrackResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.ClickTrackingResponse {
	t.Helper()
	var resp dto.ClickTrackingResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// The body contract: a destination URL is present exactly on success.
	if resp.Success != (resp.DestinationURL != "") {
		t.Errorf("success=%v but destinationUrl=%q", resp.Success, resp.DestinationURL)
	}
	return resp
}

func TestTrackClick_Success(t *testing.T) {
	body := `{"smartlinkId":"` + testSmartlinkID + `","serviceName":"spotify","serviceDisplayName":"Spotify"}`
	rec := trackRequest(http.MethodPost, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeTrackResponse(t, rec)
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Message != "Clic enregistré avec succès" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if resp.TrackingID == "" {
		t.Error("expected trackingId to be set")
	}
	for _, want := range []string{
		"https://open.spotify.com/album/xyz",
		"utm_source=mdmc_smartlink",
		"utm_medium=click",
		"utm_campaign=" + testSmartlinkID,
		"utm_content=spotify",
	} {
		if !strings.Contains(resp.DestinationURL, want) {
			t.Errorf("destinationUrl %q missing %q", resp.DestinationURL, want)
		}
	}
}

func TestTrackClick_MethodNotAllowed(t *testing.T) {
	rec := trackRequest(http.MethodGet, "")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
	resp := decodeTrackResponse(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Message != "Méthode non autorisée. Utilisez POST." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestTrackClick_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing service", `{"smartlinkId":"` + testSmartlinkID + `"}`},
		{"missing smartlink", `{"serviceName":"spotify"}`},
		{"malformed json", `{"smartlinkId":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := trackRequest(http.MethodPost, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			resp := decodeTrackResponse(t, rec)
			if resp.Success {
				t.Error("expected success=false")
			}
		})
	}
}

func TestTrackClick_InvalidSmartlinkID(t *testing.T) {
	tests := []string{
		"short",
		"507f1f77bcf86cd79943901",                             // 23 chars
		"507f1f77bcf86cd7994390111",                           // 25 chars
		"507f1f77bcf86cd79943901g",                            // non-hex
		"507f1f77bcf86cd799439011; DROP TABLE clicks",
	}

	for _, id := range tests {
		body := `{"smartlinkId":"` + id + `","serviceName":"spotify"}`
		rec := trackRequest(http.MethodPost, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: expected status 400, got %d", id, rec.Code)
		}
	}
}

func TestTrackClick_ServiceNotFound(t *testing.T) {
	body := `{"smartlinkId":"` + testSmartlinkID + `","serviceName":"deezer"}`
	rec := trackRequest(http.MethodPost, body)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	resp := decodeTrackResponse(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Message != "Service non trouvé pour ce SmartLink." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if resp.TrackingID != "" {
		t.Errorf("expected no trackingId, got %q", resp.TrackingID)
	}
}

func TestTrackClick_RecorderFailure(t *testing.T) {
	links := &fakeLinks{destinations: map[string]string{
		testSmartlinkID + "/spotify": "https://open.spotify.com/album/xyz",
	}}
	clicks := &fakeClicks{err: errors.New("connection refused")}
	h := newTestTrackHandler(links, clicks)

	body := `{"smartlinkId":"` + testSmartlinkID + `","serviceName":"spotify"}`
	req := httptest.NewRequest(http.MethodPost, "/api/track/click", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.TrackClick(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	resp := decodeTrackResponse(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Message != "Erreur interne du serveur" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if strings.Contains(resp.Message, "connection refused") {
		t.Error("internal error detail leaked to client")
	}
}

func TestTrackClick_PreservesExistingQuery(t *testing.T) {
	links := &fakeLinks{destinations: map[string]string{
		testSmartlinkID + "/youtube": "https://youtube.com/watch?v=abc123",
	}}
	clicks := &fakeClicks{trackingID: "01J8ZC3V9K4T5M6N7P8Q9R0S1T"}
	h := newTestTrackHandler(links, clicks)

	body := `{"smartlinkId":"` + testSmartlinkID + `","serviceName":"youtube"}`
	req := httptest.NewRequest(http.MethodPost, "/api/track/click", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.TrackClick(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	resp := decodeTrackResponse(t, rec)
	if !strings.Contains(resp.DestinationURL, "v=abc123") {
		t.Errorf("existing query parameter lost: %q", resp.DestinationURL)
	}
	if !strings.Contains(resp.DestinationURL, "utm_source=mdmc_smartlink") {
		t.Errorf("utm_source missing: %q", resp.DestinationURL)
	}
}

func TestTrackClick_BodyTooLarge(t *testing.T) {
	padding := strings.Repeat("x", defaultMaxBodyBytes+1)
	body := `{"smartlinkId":"` + testSmartlinkID + `","serviceName":"spotify","userAgent":"` + padding + `"}`
	rec := trackRequest(http.MethodPost, body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestTrackClick_ConfiguredBodyLimit(t *testing.T) {
	links := &fakeLinks{destinations: map[string]string{
		testSmartlinkID + "/spotify": "https://open.spotify.com/album/xyz",
	}}
	clicks := &fakeClicks{trackingID: "01J8ZC3V9K4T5M6N7P8Q9R0S1T"}
	svc := service.NewTrackService(service.TrackServiceConfig{
		Links:  links,
		Clicks: clicks,
		Geo:    &fakeGeo{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	h := NewTrackHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), 64, false)

	body := `{"smartlinkId":"` + testSmartlinkID + `","serviceName":"spotify","userAgent":"` + strings.Repeat("x", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/track/click", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.TrackClick(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 under configured limit, got %d", rec.Code)
	}
	if len(clicks.recorded) != 0 {
		t.Error("expected no click recorded for oversized body")
	}
}
