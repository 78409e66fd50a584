// Package mission defines the contract a runnable unit satisfies and a base
// implementation that drives a work function through that contract.
//
// A mission moves Idle -> Active and then into exactly one terminal state:
// Completed when its work returns normally, Failed when the work returns an
// error or panics, or Stopped when Stop is called while Active. The terminal
// transition closes the channel returned by Done, so every waiter observes
// completion and abort alike without polling. Missions are single-use.
package mission

import (
	"context"
	"errors"
	"time"

	"missionflow/internal/event"
)

var ErrStopped = errors.New("mission stopped")

type State int

const (
	Idle State = iota
	Active
	Completed
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == Completed || s == Stopped || s == Failed
}

type EventKind int

const (
	Started EventKind = iota
	PointReached
	Finished
)

func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case PointReached:
		return "point"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is emitted by a mission in the order Started, zero or more
// PointReached, Finished. A stopped mission emits no Finished event.
type Event struct {
	Kind    EventKind
	Mission string
	Point   string // PointReached only
	State   State  // Finished only: Completed or Failed
	Err     error
	At      time.Time
}

type Mission interface {
	Name() string
	// Start is a no-op unless the mission is Idle. It does not block until
	// the work is done; watch Done or the Finished event for that.
	Start(ctx context.Context)
	// Stop is a no-op unless the mission is Active.
	Stop()
	IsActive() bool
	IsCompleted() bool
	State() State
	// Done is closed once the mission reaches a terminal state.
	Done() <-chan struct{}
	// Err is nil unless the mission Failed or was Stopped.
	Err() error
	Subscribe(fn event.Handler[Event]) *event.Subscription
}

// Await blocks until m reaches a terminal state or ctx ends.
func Await(ctx context.Context, m Mission) (State, error) {
	select {
	case <-m.Done():
		return m.State(), m.Err()
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}
}
