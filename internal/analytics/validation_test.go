package analytics

import (
	"strings"
	"testing"
	"time"
)

func validPayload() ClickEventPayload {
	return ClickEventPayload{
		SmartlinkID: "507f1f77bcf86cd799439011",
		ServiceName: "spotify",
		TrackingID:  "01J8ZC3V9K4T5M6N7P8Q9R0S1T",
		CountryCode: "FR",
		VisitorHash: "a1b2c3d4e5f60718",
		ClickedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestValidateClickEventPayload(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClickEventPayload)
		wantErr bool
	}{
		{"valid", func(p *ClickEventPayload) {}, false},
		{"empty country code allowed", func(p *ClickEventPayload) { p.CountryCode = "" }, false},
		{"missing smartlink id", func(p *ClickEventPayload) { p.SmartlinkID = "" }, true},
		{"short smartlink id", func(p *ClickEventPayload) { p.SmartlinkID = "abc" }, true},
		{"non-hex smartlink id", func(p *ClickEventPayload) { p.SmartlinkID = strings.Repeat("z", 24) }, true},
		{"missing service", func(p *ClickEventPayload) { p.ServiceName = "" }, true},
		{"service too long", func(p *ClickEventPayload) { p.ServiceName = strings.Repeat("x", 51) }, true},
		{"missing visitor hash", func(p *ClickEventPayload) { p.VisitorHash = "" }, true},
		{"short visitor hash", func(p *ClickEventPayload) { p.VisitorHash = "abc" }, true},
		{"bad country code", func(p *ClickEventPayload) { p.CountryCode = "FRA" }, true},
		{"missing timestamp", func(p *ClickEventPayload) { p.ClickedAt = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			tt.mutate(&payload)
			err := ValidateClickEventPayload(payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateClickEventPayload() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateVisitorHash(t *testing.T) {
	day := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	h1 := GenerateVisitorHash("203.0.113.7", "Mozilla/5.0", day)
	h2 := GenerateVisitorHash("203.0.113.7", "Mozilla/5.0", day.Add(3*time.Hour))

	if h1 != h2 {
		t.Error("expected stable hash within the same day")
	}
	if len(h1) != 16 || !isHex(h1) {
		t.Errorf("expected 16 hex chars, got %q", h1)
	}

	nextDay := GenerateVisitorHash("203.0.113.7", "Mozilla/5.0", day.Add(24*time.Hour))
	if h1 == nextDay {
		t.Error("expected hash to rotate across days")
	}

	other := GenerateVisitorHash("203.0.113.8", "Mozilla/5.0", day)
	if h1 == other {
		t.Error("expected different hash for different IP")
	}
}

func TestTruncateUserAgent(t *testing.T) {
	short := "Mozilla/5.0"
	if got := TruncateUserAgent(short); got != short {
		t.Errorf("expected unchanged, got %q", got)
	}

	long := strings.Repeat("a", 600)
	if got := TruncateUserAgent(long); len(got) != 500 {
		t.Errorf("expected 500 chars, got %d", len(got))
	}
}
