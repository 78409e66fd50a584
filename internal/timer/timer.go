// Package timer provides a restartable, cancellable delay.
package timer

import (
	"context"
	"sync"
	"time"
)

// Timer runs one countdown at a time. Callers await or cancel an outstanding
// wait before starting the next one.
type Timer struct {
	mu     sync.Mutex
	cancel chan struct{}
}

func New() *Timer {
	return &Timer{}
}

// Start begins a countdown of d. The returned channel receives exactly one
// value: true when d elapsed, false when Cancel aborted the wait.
// A non-positive duration resolves immediately as elapsed.
func (t *Timer) Start(d time.Duration) <-chan bool {
	done := make(chan bool, 1)
	if d <= 0 {
		done <- true
		return done
	}

	cancel := make(chan struct{})
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	go func() {
		tm := time.NewTimer(d)
		defer tm.Stop()

		var elapsed bool
		select {
		case <-tm.C:
			elapsed = true
		case <-cancel:
		}

		t.mu.Lock()
		if t.cancel == cancel {
			t.cancel = nil
		}
		t.mu.Unlock()
		done <- elapsed
	}()
	return done
}

// Cancel aborts the outstanding wait, if any. The timer is reusable afterwards.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
}

// Pending reports whether a countdown is outstanding.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Wait starts a countdown and blocks until it elapses, is cancelled or ctx
// ends. It reports whether the full duration elapsed.
func (t *Timer) Wait(ctx context.Context, d time.Duration) bool {
	done := t.Start(d)
	select {
	case elapsed := <-done:
		return elapsed
	case <-ctx.Done():
		t.Cancel()
		<-done
		return false
	}
}
