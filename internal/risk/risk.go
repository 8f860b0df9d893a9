// Package risk derives outbreak risk sub-scores from environmental readings.
package risk

import (
	"math"

	"github.com/outbreakwatch/outbreakwatch/internal/airquality"
	"github.com/outbreakwatch/outbreakwatch/internal/water"
	"github.com/outbreakwatch/outbreakwatch/internal/weather"
)

// Level is the four-step risk label.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// Rank orders levels from Low (0) to Critical (3). Unknown levels rank -1.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	default:
		return -1
	}
}

// LevelFromScore maps an overall score to a Level. Boundaries are exclusive:
// 0.5 is Low, 0.7 is Medium, 0.9 is High.
func LevelFromScore(score float64) Level {
	switch {
	case score > 0.9:
		return LevelCritical
	case score > 0.7:
		return LevelHigh
	case score > 0.5:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Threat is the category owning the dominant sub-score.
type Threat string

const (
	ThreatWater       Threat = "Water-borne"
	ThreatRespiratory Threat = "Respiratory"
	ThreatVector      Threat = "Vector-borne"
)

// Driver tags attached when a sub-score exceeds DriverThreshold.
const (
	DriverWeather    = "Weather"
	DriverAirQuality = "Air quality"
	DriverWater      = "Water quality"

	DriverThreshold = 0.5
)

// aqiSeverity maps the rounded US EPA index to a respiratory sub-score.
var aqiSeverity = map[int]float64{
	1: 0.2,
	2: 0.45,
	3: 0.65,
	4: 0.8,
	5: 0.92,
	6: 1.0,
}

// Inputs are the per-region signals. Nil readings mean the fetch failed.
type Inputs struct {
	Weather   *weather.Reading
	Pollution *airquality.Reading
	Water     water.Assessment
}

// Assessment is the derived risk for one region.
type Assessment struct {
	Vector      float64
	Respiratory float64
	Water       float64

	// Score is max(Vector, Respiratory, Water).
	Score float64

	Level         Level
	PrimaryThreat Threat

	// Drivers is never nil.
	Drivers []string
}

// Compute derives an Assessment from its inputs. It has no side effects.
func Compute(in Inputs) Assessment {
	a := Assessment{
		Vector:      VectorScore(in.Weather),
		Respiratory: RespiratoryScore(in.Pollution),
		Water:       in.Water.Severity,
	}

	a.Score = math.Max(a.Vector, math.Max(a.Respiratory, a.Water))
	a.Level = LevelFromScore(a.Score)

	// Equality checks run water first, so exact ties favour water-borne.
	switch a.Score {
	case a.Water:
		a.PrimaryThreat = ThreatWater
	case a.Respiratory:
		a.PrimaryThreat = ThreatRespiratory
	default:
		a.PrimaryThreat = ThreatVector
	}

	a.Drivers = make([]string, 0, 3)
	if a.Vector > DriverThreshold {
		a.Drivers = append(a.Drivers, DriverWeather)
	}
	if a.Respiratory > DriverThreshold {
		a.Drivers = append(a.Drivers, DriverAirQuality)
	}
	if a.Water > DriverThreshold {
		a.Drivers = append(a.Drivers, DriverWater)
	}

	return a
}

// VectorScore scores warm, humid, wet conditions. Missing weather scores as 0°C, 0% and dry.
func VectorScore(w *weather.Reading) float64 {
	var temp, humidity float64
	if w != nil {
		temp, humidity = w.Temperature, w.Humidity
	}

	s := ((temp-24)/10)*0.35 + (humidity/100)*0.45
	if w.HasRecentRain() {
		s += 0.25
	}
	return clamp01(s)
}

// RespiratoryScore uses the US EPA index table when present, else scales PM2.5.
func RespiratoryScore(p *airquality.Reading) float64 {
	if p == nil {
		return 0
	}
	if p.HasIndex() {
		if s, ok := aqiSeverity[*p.USEPAIndex]; ok {
			return s
		}
	}
	return clamp01((p.PM25 / 150) * 0.8)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
