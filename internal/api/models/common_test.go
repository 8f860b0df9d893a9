package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreakwatch/outbreakwatch/internal/api/models"
)

func TestTimestamp_MarshalsUTCSeconds(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	ts := models.Timestamp(time.Date(2026, 7, 1, 11, 30, 0, 999, ist))

	b, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-07-01T06:00:00Z"`, string(b))
}

func TestTimestamp_Unmarshal(t *testing.T) {
	var body struct {
		At   models.Timestamp  `json:"at"`
		Seen *models.Timestamp `json:"seen"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2026-07-01T06:00:00Z","seen":null}`), &body))

	assert.True(t, body.At.Time().Equal(time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC)))
	assert.Nil(t, body.Seen)
}

func TestTimestamp_UnmarshalRejectsBadInput(t *testing.T) {
	for _, raw := range []string{`"yesterday"`, `1751349600`, `"2026-07-01"`} {
		var ts models.Timestamp
		assert.Error(t, json.Unmarshal([]byte(raw), &ts), raw)
	}
}
