package http

import (
	"context"
	"sync"
)

// turnTracker counts webhook turns still being processed. Shutdown waits on it
// after the listener closes so an accepted update still gets its reply.
type turnTracker struct {
	mu     sync.Mutex
	active int64
	idle   chan struct{} // closed while active == 0
}

func newTurnTracker() *turnTracker {
	t := &turnTracker{idle: make(chan struct{})}
	close(t.idle)
	return t
}

// begin registers a turn. The returned func ends it and is safe to call twice.
func (t *turnTracker) begin() func() {
	t.mu.Lock()
	if t.active == 0 {
		t.idle = make(chan struct{})
	}
	t.active++
	t.mu.Unlock()

	var once sync.Once
	return func() { once.Do(t.end) }
}

func (t *turnTracker) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active--
	if t.active == 0 {
		close(t.idle)
	}
}

func (t *turnTracker) count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// wait blocks until no turn is active or ctx is done.
func (t *turnTracker) wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// turns is fed by TurnTimeoutMiddleware.
var turns = newTurnTracker()

// InFlightCount returns the number of webhook turns being processed.
func InFlightCount() int64 {
	return turns.count()
}

// WaitForInFlight blocks until every webhook turn has replied or ctx is done.
func WaitForInFlight(ctx context.Context) error {
	return turns.wait(ctx)
}
