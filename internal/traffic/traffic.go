package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one webhook turn for health accounting.
type Outcome int

const (
	// Success is a lookup answered with almanac data.
	Success Outcome = iota
	// Failure is a lookup that ended in an upstream, decode or unexpected error.
	// Invalid user input is not a failure.
	Failure
	// Denied is a webhook call rejected by the rate limiter.
	Denied
	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Retention bounds how long samples are kept. Windows longer than this undercount.
const Retention = 5 * time.Minute

var defaultTracker = NewTracker(time.Now)

// Record adds one outcome to the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// Count returns how many o outcomes the process-wide tracker saw within window.
func Count(o Outcome, window time.Duration) int {
	return defaultTracker.Count(o, window)
}

// Total returns all outcomes within window, denials included.
func Total(window time.Duration) int {
	return defaultTracker.Total(window)
}

// FailureRate returns (failures, failures+successes) within window.
func FailureRate(window time.Duration) (failures, total int) {
	return defaultTracker.FailureRate(window)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker keeps timestamps of recent outcomes in per-outcome sliding windows.
// It backs both the overload and degraded health signals.
type Tracker struct {
	mu    sync.Mutex
	now   func() time.Time
	times [numOutcomes][]time.Time
}

// NewTracker returns a Tracker reading time from now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now}
}

// Record appends an outcome stamped with the current time.
func (t *Tracker) Record(o Outcome) {
	if o < 0 || o >= numOutcomes {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Count returns the number of o outcomes not older than window.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	if o < 0 || o >= numOutcomes {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.times[o], t.now().Add(-window))
}

// Total returns the number of outcomes of any kind not older than window.
func (t *Tracker) Total(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	n := 0
	for _, times := range t.times {
		n += countSince(times, cutoff)
	}
	return n
}

// FailureRate returns failures and the number of completed lookups within window.
// Denials are excluded.
func (t *Tracker) FailureRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	failures = countSince(t.times[Failure], cutoff)
	return failures, failures + countSince(t.times[Success], cutoff)
}

// Reset drops every sample.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.times {
		t.times[i] = nil
	}
}

// countSince counts timestamps at or after cutoff. times is in insertion order.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(times) - 1; i >= 0 && !times[i].Before(cutoff); i-- {
		n++
	}
	return n
}

// pruneLocked drops samples older than Retention. Caller holds t.mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-Retention)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
