package panchang

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/panchang-bot/internal/models"
)

func TestBuildRequest_WireFields(t *testing.T) {
	instant := models.Instant{Year: 2025, Month: 12, Day: 13, Hour: 21, Minute: 14, Second: 7}
	loc := models.Location{Latitude: 10.0079, Longitude: 77.4735, TimezoneOffsetHours: 5.5}

	body, err := json.Marshal(BuildRequest(instant, loc))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))

	want := map[string]any{
		"year":      float64(2025),
		"month":     float64(12),
		"date":      float64(13),
		"hours":     float64(21),
		"minutes":   float64(14),
		"seconds":   float64(7),
		"latitude":  10.0079,
		"longitude": 77.4735,
		"timezone":  5.5,
		"config": map[string]any{
			"observation_point": "topocentric",
			"ayanamsha":         "lahiri",
		},
	}
	assert.Equal(t, want, got)
}
