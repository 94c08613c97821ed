// Package model defines domain entities for the application.
package model

// Sentinel values used when geolocation data is unavailable.
const (
	UnknownPlace       = "Unknown"
	UnknownCountryCode = "XX"
	DefaultTimezone    = "UTC"
)

// GeoRecord holds resolved geolocation data for a client IP.
// All fields are always populated; unresolved fields carry the
// sentinel values above instead of being empty.
type GeoRecord struct {
	Country     string `json:"country"`
	Region      string `json:"region"`
	City        string `json:"city"`
	CountryCode string `json:"countryCode"` // ISO 3166-1 alpha-2 or "XX"
	Timezone    string `json:"timezone"`    // IANA name or "UTC"
	IP          string `json:"ip"`
}

// UnknownGeoRecord returns the sentinel record for an IP that could
// not be resolved (invalid, private, or all providers failed).
func UnknownGeoRecord(ip string) GeoRecord {
	return GeoRecord{
		Country:     UnknownPlace,
		Region:      UnknownPlace,
		City:        UnknownPlace,
		CountryCode: UnknownCountryCode,
		Timezone:    DefaultTimezone,
		IP:          ip,
	}
}

// IsUnknown reports whether the record carries only sentinel data.
func (g GeoRecord) IsUnknown() bool {
	return g.Country == UnknownPlace && g.CountryCode == UnknownCountryCode
}
