// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/mdmc/smartlinks/internal/model"
)

// TrackClickRequest represents the request body for tracking a click.
type TrackClickRequest struct {
	SmartlinkID        string `json:"smartlinkId"`
	ServiceName        string `json:"serviceName"`
	ServiceDisplayName string `json:"serviceDisplayName,omitempty"`
	UserAgent          string `json:"userAgent,omitempty"`
	SessionID          string `json:"sessionId,omitempty"`
	Timestamp          string `json:"timestamp,omitempty"` // ISO-8601
}

// ClickTrackingResponse is the response body for the track endpoint.
// Success and DestinationURL are always present so callers can branch on
// success without null-checking: DestinationURL is "" exactly when
// Success is false.
type ClickTrackingResponse struct {
	Success        bool   `json:"success"`
	DestinationURL string `json:"destinationUrl"`
	TrackingID     string `json:"trackingId,omitempty"`
	Message        string `json:"message,omitempty"`
}

// PlatformResponse represents one platform on a smart link.
type PlatformResponse struct {
	ServiceName string `json:"serviceName"`
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
}

// SmartLinkResponse represents a smart link in API responses.
type SmartLinkResponse struct {
	ID        string             `json:"id"`
	Slug      string             `json:"slug"`
	Title     string             `json:"title"`
	Artist    string             `json:"artist"`
	Tags      []string           `json:"tags,omitempty"`
	Platforms []PlatformResponse `json:"platforms"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ErrorResponse represents a generic API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToSmartLinkResponse converts a SmartLink model to its DTO.
func ToSmartLinkResponse(link *model.SmartLink) *SmartLinkResponse {
	platforms := make([]PlatformResponse, len(link.Platforms))
	for i, p := range link.Platforms {
		platforms[i] = PlatformResponse{
			ServiceName: p.ServiceName,
			DisplayName: p.DisplayName,
			URL:         p.URL,
		}
	}
	return &SmartLinkResponse{
		ID:        link.ID,
		Slug:      link.Slug,
		Title:     link.Title,
		Artist:    link.Artist,
		Tags:      link.Tags,
		Platforms: platforms,
		CreatedAt: link.CreatedAt,
		UpdatedAt: link.UpdatedAt,
	}
}
