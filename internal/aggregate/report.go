package aggregate

import (
	"math"
	"strings"
	"time"

	"github.com/outbreakwatch/outbreakwatch/internal/airquality"
	"github.com/outbreakwatch/outbreakwatch/internal/risk"
	"github.com/outbreakwatch/outbreakwatch/internal/water"
	"github.com/outbreakwatch/outbreakwatch/internal/weather"
)

// FallbackProvider is reported in Meta for sources without credentials.
const FallbackProvider = "fallback"

// Report is the response envelope for one aggregation pass.
type Report struct {
	States    []StateRisk `json:"states"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Meta      Meta        `json:"meta"`
}

// Meta records which upstream sources were live for this pass.
type Meta struct {
	WeatherProvider   string `json:"weatherProvider"`
	PollutionProvider string `json:"pollutionProvider"`
	WaterProvider     string `json:"waterProvider"`

	HasWeatherKey   bool `json:"hasWeatherKey"`
	HasPollutionKey bool `json:"hasPollutionKey"`
	HasWaterKey     bool `json:"hasWaterKey"`

	WaterRecords int `json:"waterRecords"`
	Regions      int `json:"regions"`
	Concurrency  int `json:"concurrency"`

	// StaleWeather and StalePollution count regions served from cache
	// after their fetch failed.
	StaleWeather   int `json:"staleWeather"`
	StalePollution int `json:"stalePollution"`
}

// StateRisk is the per-region record.
type StateRisk struct {
	State       string     `json:"state"`
	RiskScore   float64    `json:"riskScore"`
	OverallRisk risk.Level `json:"overallRisk"`

	// RiskLevel duplicates OverallRisk for older consumers.
	RiskLevel risk.Level `json:"riskLevel"`

	Drivers         []string    `json:"drivers"`
	DengueRisk      int         `json:"dengueRisk"`
	RespiratoryRisk int         `json:"respiratoryRisk"`
	WaterRisk       int         `json:"waterRisk"`
	PrimaryThreat   risk.Threat `json:"primaryThreat"`

	EnvironmentalFactors EnvironmentalFactors `json:"environmentalFactors"`

	Weather   *weather.Reading    `json:"weather"`
	Pollution *airquality.Reading `json:"pollution"`
	Water     *water.Record       `json:"water"`

	// Case counts are not computed here.
	Cases  int `json:"cases"`
	Deaths int `json:"deaths"`
}

// EnvironmentalFactors flattens the inputs that drove the score.
// Temp and Humidity are null when weather is unavailable.
type EnvironmentalFactors struct {
	Temp         *float64    `json:"temp"`
	Humidity     *float64    `json:"humidity"`
	Rain         bool        `json:"rain"`
	PM25         float64     `json:"pm25"`
	AQIUS        *int        `json:"aqiUS"`
	WaterQuality water.Label `json:"waterQuality"`
}

// Find returns the record for a region name, matched ignoring case and punctuation.
func (r *Report) Find(name string) (*StateRisk, bool) {
	key := water.NormalizeName(name)
	if key == "" {
		return nil, false
	}
	for i := range r.States {
		if water.NormalizeName(r.States[i].State) == key {
			return &r.States[i], true
		}
	}
	return nil, false
}

// CountByLevel tallies regions per risk level.
func (r *Report) CountByLevel() map[risk.Level]int {
	counts := map[risk.Level]int{
		risk.LevelLow:      0,
		risk.LevelMedium:   0,
		risk.LevelHigh:     0,
		risk.LevelCritical: 0,
	}
	for _, s := range r.States {
		counts[s.OverallRisk]++
	}
	return counts
}

// shapeState builds the response record for one region.
func shapeState(data RegionData, rec *water.Record, wa water.Assessment, a risk.Assessment) StateRisk {
	s := StateRisk{
		State:           data.Region.Name,
		RiskScore:       roundTo(a.Score, 3),
		OverallRisk:     a.Level,
		RiskLevel:       a.Level,
		Drivers:         a.Drivers,
		DengueRisk:      percent(a.Vector),
		RespiratoryRisk: percent(a.Respiratory),
		WaterRisk:       percent(a.Water),
		PrimaryThreat:   a.PrimaryThreat,
		Weather:         data.Weather,
		Pollution:       data.Pollution,
		Water:           rec,
	}

	s.EnvironmentalFactors.WaterQuality = wa.Label
	if w := data.Weather; w != nil {
		temp, humidity := w.Temperature, w.Humidity
		s.EnvironmentalFactors.Temp = &temp
		s.EnvironmentalFactors.Humidity = &humidity
		s.EnvironmentalFactors.Rain = w.HasRecentRain()
	}
	if p := data.Pollution; p != nil {
		s.EnvironmentalFactors.PM25 = p.PM25
		s.EnvironmentalFactors.AQIUS = p.USEPAIndex
	}

	return s
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func providerName(name string, live bool) string {
	if !live || strings.TrimSpace(name) == "" {
		return FallbackProvider
	}
	return name
}
