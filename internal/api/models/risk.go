package models

import "github.com/outbreakwatch/outbreakwatch/internal/snapshot"

// RiskHistory is the response for GET /v1/risk/history.
type RiskHistory struct {
	Snapshots []snapshot.Summary `json:"snapshots"`
	Meta      PagedResponseMeta  `json:"meta"`
}
