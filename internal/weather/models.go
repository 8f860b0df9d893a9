// Package weather provides current-weather lookups per region with caching.
package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrEmptyLocation       = errors.New("empty location name")
)

// Reading is the current weather for a region.
type Reading struct {
	// Temperature in Celsius.
	Temperature float64 `json:"temp"`

	// Humidity percentage (0-100).
	Humidity float64 `json:"humidity"`

	// RainLast3h is precipitation over the trailing three hours in mm.
	RainLast3h float64 `json:"rain_last_3h"`

	Condition   Condition `json:"condition"`
	Description string    `json:"description"`

	ObservedAt time.Time `json:"observedAt"`
	FetchedAt  time.Time `json:"fetchedAt"`

	// Stale is set when a cached reading stands in for a failed fetch.
	Stale bool `json:"stale,omitempty"`
}

// HasRecentRain reports whether any precipitation fell in the trailing window.
func (r *Reading) HasRecentRain() bool {
	return r != nil && r.RainLast3h > 0
}

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)
