package panchang

import (
	"time"

	"github.com/kjstillabower/panchang-bot/internal/models"
	"github.com/kjstillabower/panchang-bot/internal/validation"
)

// BuildInstant combines the DD-MM-YYYY date in input with the clock reading of
// arrival in zone. The result answers "the almanac for that date, as of now":
// the upstream is time-of-day sensitive, so midnight is never substituted.
// Callers wanting start-of-day semantics must zero the clock themselves.
func BuildInstant(input string, arrival time.Time, zone *time.Location) (models.Instant, error) {
	year, month, day, err := validation.ParseDate(input)
	if err != nil {
		return models.Instant{}, models.NewInvalidDateError(input, err)
	}
	if zone == nil {
		zone = DefaultZone()
	}
	local := arrival.In(zone)
	return models.Instant{
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Second: local.Second(),
	}, nil
}

// LoadZone resolves an IANA zone name. When tzdata is unavailable it falls back
// to a fixed zone with the given offset.
func LoadZone(name string, offsetHours float64) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	label := name
	if label == "" {
		label = "LOCAL"
	}
	return time.FixedZone(label, int(offsetHours*3600))
}

// DefaultZone is IST (UTC+5:30).
func DefaultZone() *time.Location {
	return LoadZone("Asia/Kolkata", 5.5)
}
