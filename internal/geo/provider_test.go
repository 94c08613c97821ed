package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mdmc/smartlinks/internal/model"
)

func TestIPAPIProvider_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/203.0.113.7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"country": "France",
			"countryCode": "FR",
			"regionName": "Île-de-France",
			"city": "Paris",
			"timezone": "Europe/Paris",
			"query": "203.0.113.7"
		}`))
	}))
	defer srv.Close()

	p := NewIPAPIProvider(srv.URL)
	record, err := p.Lookup(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}

	if record.Country != "France" || record.CountryCode != "FR" {
		t.Errorf("unexpected country: %+v", record)
	}
	if record.Region != "Île-de-France" || record.City != "Paris" {
		t.Errorf("unexpected region/city: %+v", record)
	}
	if record.Timezone != "Europe/Paris" {
		t.Errorf("unexpected timezone: %s", record.Timezone)
	}
	if record.IP != "203.0.113.7" {
		t.Errorf("unexpected IP: %s", record.IP)
	}
}

func TestIPAPIProvider_FailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	p := NewIPAPIProvider(srv.URL)
	if _, err := p.Lookup(context.Background(), "203.0.113.7"); err == nil {
		t.Error("expected error for fail status")
	}
}

func TestIPAPIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewIPAPIProvider(srv.URL)
	if _, err := p.Lookup(context.Background(), "203.0.113.7"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestIPWhoProvider_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/203.0.113.7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"country": "Belgium",
			"country_code": "BE",
			"region": "Brussels",
			"city": "Brussels",
			"timezone": {"id": "Europe/Brussels"}
		}`))
	}))
	defer srv.Close()

	p := NewIPWhoProvider(srv.URL)
	record, err := p.Lookup(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}

	if record.CountryCode != "BE" {
		t.Errorf("expected BE, got %s", record.CountryCode)
	}
	if record.Timezone != "Europe/Brussels" {
		t.Errorf("expected nested timezone id, got %s", record.Timezone)
	}
}

func TestIPWhoProvider_FailFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"invalid IP"}`))
	}))
	defer srv.Close()

	p := NewIPWhoProvider(srv.URL)
	if _, err := p.Lookup(context.Background(), "203.0.113.7"); err == nil {
		t.Error("expected error for success=false")
	}
}

func TestNormalizeRecord_Sentinels(t *testing.T) {
	tests := []struct {
		name        string
		countryCode string
		wantCode    string
	}{
		{"valid code", "FR", "FR"},
		{"empty code", "", model.UnknownCountryCode},
		{"too long", "FRA", model.UnknownCountryCode},
		{"too short", "F", model.UnknownCountryCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := normalizeRecord("203.0.113.7", "", "", "", tt.countryCode, "")
			if record.CountryCode != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, record.CountryCode)
			}
			if record.Country != model.UnknownPlace || record.Region != model.UnknownPlace || record.City != model.UnknownPlace {
				t.Errorf("expected place sentinels, got %+v", record)
			}
			if record.Timezone != model.DefaultTimezone {
				t.Errorf("expected timezone sentinel, got %s", record.Timezone)
			}
		})
	}
}
