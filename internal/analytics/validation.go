// Package analytics provides click event fan-out and daily aggregation.
package analytics

import "fmt"

const (
	smartlinkIDLength = 24
	maxServiceLength  = 50
	visitorHashLength = 16
)

// ValidateClickEventPayload validates click event payload fields before
// the worker aggregates them. Invalid payloads are dead-lettered.
func ValidateClickEventPayload(payload ClickEventPayload) error {
	if payload.SmartlinkID == "" {
		return fmt.Errorf("smartlink_id is required")
	}
	if len(payload.SmartlinkID) != smartlinkIDLength || !isHex(payload.SmartlinkID) {
		return fmt.Errorf("smartlink_id must be %d hex chars", smartlinkIDLength)
	}
	if payload.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if len(payload.ServiceName) > maxServiceLength {
		return fmt.Errorf("service_name too long")
	}
	if payload.VisitorHash == "" {
		return fmt.Errorf("visitor_hash is required")
	}
	if len(payload.VisitorHash) != visitorHashLength || !isHex(payload.VisitorHash) {
		return fmt.Errorf("visitor_hash must be %d hex chars", visitorHashLength)
	}
	if payload.CountryCode != "" && len(payload.CountryCode) != 2 {
		return fmt.Errorf("country_code must be 2 chars")
	}
	if payload.ClickedAt <= 0 {
		return fmt.Errorf("clicked_at is required")
	}
	return nil
}

// isHex reports whether s consists only of hex characters.
func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
