// Package model defines domain entities for the application.
package model

import (
	"regexp"
	"time"
)

// smartlinkIDPattern matches the 24-hex-character identifier format
// used by the persistent store.
var smartlinkIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IsValidSmartlinkID reports whether id matches the store's identifier format.
func IsValidSmartlinkID(id string) bool {
	return smartlinkIDPattern.MatchString(id)
}

// Platform is one streaming service registered on a smart link.
type Platform struct {
	ServiceName string `json:"service_name"` // canonical key, e.g. "spotify"
	DisplayName string `json:"display_name"` // human label, e.g. "Spotify"
	URL         string `json:"url"`
}

// SmartLink maps one track/release to its streaming platform URLs.
type SmartLink struct {
	ID        string     `json:"id"` // 24-hex identifier
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Artist    string     `json:"artist"`
	Tags      []string   `json:"tags,omitempty"`
	Platforms []Platform `json:"platforms"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PlatformURL returns the destination URL for a service, or "" if the
// service is not registered on this link.
func (s *SmartLink) PlatformURL(serviceName string) string {
	for _, p := range s.Platforms {
		if p.ServiceName == serviceName {
			return p.URL
		}
	}
	return ""
}
