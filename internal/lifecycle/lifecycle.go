package lifecycle

import (
	"sync/atomic"
	"time"
)

var (
	shuttingDown atomic.Bool
	drainStarted atomic.Int64 // unix nanos, 0 when serving
)

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT is received.
// While set, /health answers 503 shutting-down so Telegram retries land on a
// healthy instance, and the webhook answers 503 so the update is redelivered.
func SetShuttingDown(v bool) {
	if v {
		drainStarted.CompareAndSwap(0, time.Now().UnixNano())
	} else {
		drainStarted.Store(0)
	}
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// DrainingFor returns how long the process has been draining, or 0.
func DrainingFor() time.Duration {
	started := drainStarted.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}
