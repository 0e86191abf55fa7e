package degraded

import (
	"time"

	"github.com/kjstillabower/panchang-bot/internal/traffic"
)

// RecordSuccess records a lookup answered with almanac data.
func RecordSuccess() {
	traffic.Record(traffic.Success)
}

// RecordError records a lookup that failed upstream or in decoding.
func RecordError() {
	traffic.Record(traffic.Failure)
}

// ErrorRate returns (errors, completed lookups) within the window.
func ErrorRate(window time.Duration) (errors, total int) {
	return traffic.FailureRate(window)
}

// IsDegraded reports whether the failure share within window has reached
// thresholdPct. A window with no lookups is never degraded. A non-positive
// window or threshold disables the check.
func IsDegraded(window time.Duration, thresholdPct int) bool {
	if window <= 0 || thresholdPct <= 0 {
		return false
	}
	errors, total := ErrorRate(window)
	if total == 0 {
		return false
	}
	return errors*100 >= thresholdPct*total
}

// Reset clears all recorded data. For tests only.
func Reset() {
	traffic.Reset()
}
