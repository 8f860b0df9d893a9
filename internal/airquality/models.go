// Package airquality provides current pollution readings per location with caching.
package airquality

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider errors.
var (
	ErrNoDataForLocation   = errors.New("no air quality data for location")
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrEmptyLocation       = errors.New("empty location")
)

// Reading is the current particulate load and US EPA index for a location.
type Reading struct {
	// PM25 is the fine particulate concentration in µg/m³.
	PM25 float64 `json:"pm25"`

	// PM10 is the coarse particulate concentration in µg/m³.
	PM10 float64 `json:"pm10"`

	// USEPAIndex is the US EPA air quality category (1-6), nil when not reported.
	USEPAIndex *int `json:"usEpaIndex"`

	UpdatedAt time.Time `json:"updatedAt"`

	// Stale is set when a cached reading stands in for a failed fetch.
	Stale bool `json:"stale,omitempty"`
}

// HasIndex reports whether the reading carries a US EPA index.
func (r *Reading) HasIndex() bool {
	return r != nil && r.USEPAIndex != nil
}

// DegradedReading is the placeholder served when no pollution provider is configured.
func DegradedReading() *Reading {
	return &Reading{PM25: 0, USEPAIndex: nil}
}

// Location identifies where a reading is requested for.
// Coordinates take precedence over the name when set.
type Location struct {
	Name     string
	Lat, Lon float64
	HasCoord bool
}

// key returns the cache key for the location.
func (l Location) key() string {
	if l.HasCoord {
		return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
	}
	return strings.Join(strings.Fields(strings.ToLower(l.Name)), " ")
}
