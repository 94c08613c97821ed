// Package model defines domain entities for the application.
package model

import "time"

// ClickEvent represents a single platform-click on a smart link.
// The handler constructs it once per request; it is never mutated
// after construction.
type ClickEvent struct {
	SmartlinkID        string    `json:"smartlink_id"` // 24-hex identifier
	ServiceName        string    `json:"service_name"` // canonical platform key
	ServiceDisplayName string    `json:"service_display_name,omitempty"`
	UserAgent          string    `json:"user_agent,omitempty"` // truncated 500 chars
	SessionID          string    `json:"session_id,omitempty"`
	Geo                GeoRecord `json:"geo"`

	// Privacy-safe visitor identification: SHA256(IP + UA + daily_salt)[0:16]
	VisitorHash string `json:"visitor_hash,omitempty"`

	ClickedAt time.Time `json:"clicked_at"`
}

// DailyStats represents pre-aggregated daily click statistics
// for one smart link.
type DailyStats struct {
	SmartlinkID string    `json:"smartlink_id"`
	Date        time.Time `json:"date"` // UTC date, time component zeroed

	TotalClicks    int64 `json:"total_clicks"`
	UniqueVisitors int64 `json:"unique_visitors"`

	// Breakdowns (stored as JSONB in Postgres)
	ServiceBreakdown map[string]int64 `json:"service_breakdown,omitempty"`
	CountryBreakdown map[string]int64 `json:"country_breakdown,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
