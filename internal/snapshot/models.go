// Package snapshot persists aggregation reports for history and alert comparison.
package snapshot

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/outbreakwatch/outbreakwatch/internal/aggregate"
	"github.com/outbreakwatch/outbreakwatch/internal/risk"
)

// Snapshot errors.
var (
	ErrNilReport = errors.New("nil report")
)

// Snapshot is one persisted aggregation pass.
type Snapshot struct {
	ID      string
	TakenAt time.Time
	Report  *aggregate.Report
}

// New wraps a report in a snapshot with a fresh ID.
func New(report *aggregate.Report) (*Snapshot, error) {
	if report == nil {
		return nil, ErrNilReport
	}
	return &Snapshot{
		ID:      uuid.NewString(),
		TakenAt: report.UpdatedAt,
		Report:  report,
	}, nil
}

// Levels maps each region name to its risk level.
func (s *Snapshot) Levels() map[string]risk.Level {
	levels := make(map[string]risk.Level, len(s.Report.States))
	for _, st := range s.Report.States {
		levels[st.State] = st.OverallRisk
	}
	return levels
}

// Summary is the compact history view of a snapshot.
type Summary struct {
	ID           string    `json:"id"`
	TakenAt      time.Time `json:"takenAt"`
	Regions      int       `json:"regions"`
	WaterRecords int       `json:"waterRecords"`
	Critical     int       `json:"critical"`
	High         int       `json:"high"`
	Medium       int       `json:"medium"`
	Low          int       `json:"low"`

	// Highest is the region with the top score, empty when there are no regions.
	Highest      string  `json:"highest"`
	HighestScore float64 `json:"highestScore"`
}

// Summarize computes the history view.
func (s *Snapshot) Summarize() Summary {
	counts := s.Report.CountByLevel()
	sum := Summary{
		ID:           s.ID,
		TakenAt:      s.TakenAt,
		Regions:      len(s.Report.States),
		WaterRecords: s.Report.Meta.WaterRecords,
		Critical:     counts[risk.LevelCritical],
		High:         counts[risk.LevelHigh],
		Medium:       counts[risk.LevelMedium],
		Low:          counts[risk.LevelLow],
	}
	for _, st := range s.Report.States {
		if sum.Highest == "" || st.RiskScore > sum.HighestScore {
			sum.Highest, sum.HighestScore = st.State, st.RiskScore
		}
	}
	return sum
}
