package mission

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func waitDone(t *testing.T, m Mission) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("mission %s never reached a terminal state", m.Name())
	}
}

func TestRunnerLifecycle(t *testing.T) {
	m := New("A", func(ctx context.Context, p Progress) error {
		p.Point("midpoint")
		return nil
	})
	rec := &recorder{}
	m.Subscribe(rec.handle)

	if m.State() != Idle {
		t.Fatalf("new mission state = %v, want idle", m.State())
	}
	m.Start(context.Background())
	waitDone(t, m)

	if !m.IsCompleted() || m.IsActive() {
		t.Errorf("expected completed and not active, got state %v", m.State())
	}
	if m.Err() != nil {
		t.Errorf("unexpected error: %v", m.Err())
	}

	want := []EventKind{Started, PointReached, Finished}
	if got := rec.kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if rec.events[1].Point != "midpoint" || rec.events[1].Mission != "A" {
		t.Errorf("unexpected point event: %+v", rec.events[1])
	}
	if rec.events[2].State != Completed {
		t.Errorf("finished event state = %v, want completed", rec.events[2].State)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	release := make(chan struct{})
	m := New("A", func(ctx context.Context, p Progress) error {
		<-release
		return nil
	})
	rec := &recorder{}
	m.Subscribe(rec.handle)

	m.Start(context.Background())
	m.Start(context.Background())
	close(release)
	waitDone(t, m)
	m.Start(context.Background())

	want := []EventKind{Started, Finished}
	if got := rec.kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestStopIsDistinctTerminalOutcome(t *testing.T) {
	m := New("A", func(ctx context.Context, p Progress) error {
		<-ctx.Done()
		return ctx.Err()
	})
	rec := &recorder{}
	m.Subscribe(rec.handle)

	m.Start(context.Background())
	m.Stop()
	waitDone(t, m)

	if m.State() != Stopped {
		t.Errorf("state = %v, want stopped", m.State())
	}
	if m.IsCompleted() || m.IsActive() {
		t.Error("stopped mission must be neither active nor completed")
	}
	if !errors.Is(m.Err(), ErrStopped) {
		t.Errorf("err = %v, want ErrStopped", m.Err())
	}

	// Give the work goroutine time to observe cancellation.
	time.Sleep(10 * time.Millisecond)
	want := []EventKind{Started}
	if got := rec.kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestStopWhenNotActiveIsNoop(t *testing.T) {
	m := New("A", nil)
	m.Stop()
	if m.State() != Idle {
		t.Fatalf("stop on idle mission changed state to %v", m.State())
	}

	m.Start(context.Background())
	waitDone(t, m)
	m.Stop()
	if m.State() != Completed {
		t.Errorf("stop after completion changed state to %v", m.State())
	}
}

func TestWorkErrorFails(t *testing.T) {
	boom := errors.New("boom")
	testCases := []struct {
		name string
		work Work
		is   error
	}{
		{
			name: "returned error",
			work: func(context.Context, Progress) error { return boom },
			is:   boom,
		},
		{
			name: "panic",
			work: func(context.Context, Progress) error { panic("kaboom") },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := New("A", tc.work)
			rec := &recorder{}
			m.Subscribe(rec.handle)

			m.Start(context.Background())
			waitDone(t, m)

			if m.State() != Failed {
				t.Fatalf("state = %v, want failed", m.State())
			}
			if m.Err() == nil {
				t.Fatal("expected an error")
			}
			if tc.is != nil && !errors.Is(m.Err(), tc.is) {
				t.Errorf("err = %v, want %v", m.Err(), tc.is)
			}
			last := rec.events[len(rec.events)-1]
			if last.Kind != Finished || last.State != Failed {
				t.Errorf("last event = %+v, want finished/failed", last)
			}
		})
	}
}

func TestParentContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := New("A", func(ctx context.Context, p Progress) error {
		<-ctx.Done()
		return ctx.Err()
	})
	m.Start(ctx)
	cancel()
	waitDone(t, m)

	if m.State() != Stopped {
		t.Errorf("state = %v, want stopped", m.State())
	}
}

func TestAwait(t *testing.T) {
	m := New("A", func(ctx context.Context, p Progress) error {
		<-ctx.Done()
		return ctx.Err()
	})
	m.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := Await(ctx, m); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await err = %v, want deadline exceeded", err)
	}

	m.Stop()
	state, err := Await(context.Background(), m)
	if state != Stopped || !errors.Is(err, ErrStopped) {
		t.Errorf("Await = (%v, %v), want (stopped, ErrStopped)", state, err)
	}
}
