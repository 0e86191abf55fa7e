package models

import "time"

// NA marks a field the upstream did not supply.
const NA = "N/A"

// Instant is a wall-clock reading in the configured local zone.
type Instant struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Time returns the instant as a time.Time in loc.
func (i Instant) Time(loc *time.Location) time.Time {
	return time.Date(i.Year, time.Month(i.Month), i.Day, i.Hour, i.Minute, i.Second, 0, loc)
}

// Location is the fixed observation point and timezone. Built once from config.
type Location struct {
	Name                string
	Latitude            float64
	Longitude           float64
	TimezoneOffsetHours float64
	Zone                *time.Location
	ZoneLabel           string // e.g. "IST"
}

// APIRequest is the upstream request body. Field names are fixed by the upstream schema.
type APIRequest struct {
	Year      int              `json:"year"`
	Month     int              `json:"month"`
	Date      int              `json:"date"`
	Hours     int              `json:"hours"`
	Minutes   int              `json:"minutes"`
	Seconds   int              `json:"seconds"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Timezone  float64          `json:"timezone"`
	Config    APIRequestConfig `json:"config"`
}

type APIRequestConfig struct {
	ObservationPoint string `json:"observation_point"`
	Ayanamsha        string `json:"ayanamsha"`
}

// AlmanacRecord is the canonical panchang after normalization.
// Every field holds either a value or NA.
type AlmanacRecord struct {
	Tithi     Tithi
	Nakshatra Nakshatra
	Yoga      Period
	Karana    Period
	Sunrise   string
	Sunset    string

	// Partial is set when only the tithi was available upstream.
	Partial bool
}

type Tithi struct {
	Name             string
	Number           string
	Paksha           string
	CompletesAt      string
	RemainingPercent string
}

type Nakshatra struct {
	Name             string
	Number           string
	StartsAt         string
	EndsAt           string
	RemainingPercent string
}

// Period is a yoga or karana occurrence.
type Period struct {
	Name        string
	Number      string
	CompletesAt string
}

// EmptyRecord returns a record with every field set to NA.
func EmptyRecord() AlmanacRecord {
	return AlmanacRecord{
		Tithi:     Tithi{Name: NA, Number: NA, Paksha: NA, CompletesAt: NA, RemainingPercent: NA},
		Nakshatra: Nakshatra{Name: NA, Number: NA, StartsAt: NA, EndsAt: NA, RemainingPercent: NA},
		Yoga:      Period{Name: NA, Number: NA, CompletesAt: NA},
		Karana:    Period{Name: NA, Number: NA, CompletesAt: NA},
		Sunrise:   NA,
		Sunset:    NA,
	}
}
