package panchang

import "github.com/kjstillabower/panchang-bot/internal/models"

const (
	ObservationPoint = "topocentric"
	Ayanamsha        = "lahiri"
)

// BuildRequest maps an instant and the fixed location onto the upstream request schema.
func BuildRequest(instant models.Instant, loc models.Location) models.APIRequest {
	return models.APIRequest{
		Year:      instant.Year,
		Month:     instant.Month,
		Date:      instant.Day,
		Hours:     instant.Hour,
		Minutes:   instant.Minute,
		Seconds:   instant.Second,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Timezone:  loc.TimezoneOffsetHours,
		Config: models.APIRequestConfig{
			ObservationPoint: ObservationPoint,
			Ayanamsha:        Ayanamsha,
		},
	}
}
