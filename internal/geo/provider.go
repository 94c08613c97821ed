package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/mdmc/smartlinks/internal/model"
)

// Provider timeouts. Enforced per call by the resolver so a slow vendor
// cannot hold a request beyond the fallback chain's worst case.
const (
	// DefaultPrimaryTimeout bounds the primary provider call.
	DefaultPrimaryTimeout = 3 * time.Second

	// DefaultSecondaryTimeout bounds the fallback provider call.
	DefaultSecondaryTimeout = 2 * time.Second
)

// Provider resolves an IP against one geolocation vendor.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (model.GeoRecord, error)
}

// newHTTPClient builds an HTTP client for provider calls. Per-call
// deadlines come from the context; the transport timeouts guard the
// connection phases.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   2 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   2 * time.Second,
			ResponseHeaderTimeout: 3 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// ipAPIProvider queries an ip-api.com-compatible endpoint:
// GET {base}/json/{ip} returning a flat JSON payload with a "status" field.
type ipAPIProvider struct {
	baseURL string
	client  *http.Client
}

// NewIPAPIProvider creates the primary provider against baseURL
// (e.g. "http://ip-api.com").
func NewIPAPIProvider(baseURL string) Provider {
	return &ipAPIProvider{baseURL: baseURL, client: newHTTPClient()}
}

func (p *ipAPIProvider) Name() string { return "ip-api" }

func (p *ipAPIProvider) Lookup(ctx context.Context, ip string) (model.GeoRecord, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=status,message,country,countryCode,regionName,city,timezone,query", p.baseURL, url.PathEscape(ip))

	var payload struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		Country     string `json:"country"`
		CountryCode string `json:"countryCode"`
		RegionName  string `json:"regionName"`
		City        string `json:"city"`
		Timezone    string `json:"timezone"`
		Query       string `json:"query"`
	}

	if err := getJSON(ctx, p.client, endpoint, &payload); err != nil {
		return model.GeoRecord{}, err
	}
	if payload.Status != "success" {
		return model.GeoRecord{}, fmt.Errorf("ip-api lookup failed: %s", payload.Message)
	}

	return normalizeRecord(ip, payload.Country, payload.RegionName, payload.City, payload.CountryCode, payload.Timezone), nil
}

// ipWhoProvider queries an ipwho.is-compatible endpoint:
// GET {base}/{ip} returning a JSON payload with a "success" flag and a
// nested timezone object.
type ipWhoProvider struct {
	baseURL string
	client  *http.Client
}

// NewIPWhoProvider creates the fallback provider against baseURL
// (e.g. "https://ipwho.is").
func NewIPWhoProvider(baseURL string) Provider {
	return &ipWhoProvider{baseURL: baseURL, client: newHTTPClient()}
}

func (p *ipWhoProvider) Name() string { return "ipwho" }

func (p *ipWhoProvider) Lookup(ctx context.Context, ip string) (model.GeoRecord, error) {
	endpoint := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(ip))

	var payload struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
		Region      string `json:"region"`
		City        string `json:"city"`
		Timezone    struct {
			ID string `json:"id"`
		} `json:"timezone"`
	}

	if err := getJSON(ctx, p.client, endpoint, &payload); err != nil {
		return model.GeoRecord{}, err
	}
	if !payload.Success {
		return model.GeoRecord{}, fmt.Errorf("ipwho lookup failed: %s", payload.Message)
	}

	return normalizeRecord(ip, payload.Country, payload.Region, payload.City, payload.CountryCode, payload.Timezone.ID), nil
}

// getJSON performs a GET and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "MDMC-SmartLinks/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

// normalizeRecord maps a provider payload onto a fully-populated GeoRecord,
// substituting sentinels for missing fields.
func normalizeRecord(ip, country, region, city, countryCode, timezone string) model.GeoRecord {
	record := model.GeoRecord{
		Country:     country,
		Region:      region,
		City:        city,
		CountryCode: countryCode,
		Timezone:    timezone,
		IP:          ip,
	}
	if record.Country == "" {
		record.Country = model.UnknownPlace
	}
	if record.Region == "" {
		record.Region = model.UnknownPlace
	}
	if record.City == "" {
		record.City = model.UnknownPlace
	}
	if len(record.CountryCode) != 2 {
		record.CountryCode = model.UnknownCountryCode
	}
	if record.Timezone == "" {
		record.Timezone = model.DefaultTimezone
	}
	return record
}
