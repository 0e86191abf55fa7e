package http

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestTurnTracker_Count(t *testing.T) {
	tracker := newTurnTracker()
	first := tracker.begin()
	second := tracker.begin()
	if got := tracker.count(); got != 2 {
		t.Errorf("count() = %d, want 2", got)
	}
	first()
	first()
	if got := tracker.count(); got != 1 {
		t.Errorf("count() = %d after double end, want 1", got)
	}
	second()
	if got := tracker.count(); got != 0 {
		t.Errorf("count() = %d, want 0", got)
	}
}

func TestTurnTracker_Concurrent(t *testing.T) {
	tracker := newTurnTracker()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := tracker.begin()
			done()
		}()
	}
	wg.Wait()
	if got := tracker.count(); got != 0 {
		t.Errorf("count() = %d after balanced turns, want 0", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := tracker.wait(ctx); err != nil {
		t.Errorf("wait() = %v on idle tracker, want nil", err)
	}
}

func TestTurnTracker_WaitReturnsWhenTurnEnds(t *testing.T) {
	tracker := newTurnTracker()
	done := tracker.begin()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- tracker.wait(ctx) }()

	time.Sleep(10 * time.Millisecond)
	done()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("wait() = %v, want nil", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("wait did not return after the turn ended")
	}
}

func TestTurnTracker_WaitContextCanceled(t *testing.T) {
	tracker := newTurnTracker()
	defer tracker.begin()()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tracker.wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("wait() = %v, want context.Canceled", err)
	}
}
