package overload

import (
	"time"

	"github.com/kjstillabower/panchang-bot/internal/traffic"
)

// RecordDenial records a webhook call rejected by the rate limiter.
func RecordDenial() {
	traffic.Record(traffic.Denied)
}

// RequestCount returns all webhook outcomes within the window, denials included.
func RequestCount(window time.Duration) int {
	return traffic.Total(window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return traffic.Count(traffic.Denied, window)
}

// IsOverloaded reports whether traffic within window exceeds thresholdPct of
// what the rate limiter admits (rps * window). A zero rps disables the check.
func IsOverloaded(window time.Duration, rps, thresholdPct int) bool {
	if rps <= 0 || window <= 0 || thresholdPct <= 0 {
		return false
	}
	threshold := float64(rps) * window.Seconds() * float64(thresholdPct) / 100
	return float64(RequestCount(window)) > threshold
}

// Reset clears all recorded data. For tests only.
func Reset() {
	traffic.Reset()
}
