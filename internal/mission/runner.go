package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"missionflow/internal/event"
	"missionflow/internal/logger"
)

// Progress lets work report intermediate milestones.
type Progress interface {
	Point(label string)
}

// Work is the implementation-defined content of a mission. It should return
// promptly once ctx is cancelled.
type Work func(ctx context.Context, p Progress) error

// Runner implements Mission around a Work function.
type Runner struct {
	name string
	work Work
	hub  event.Hub[Event]

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelFunc

	emitMu    sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func New(name string, work Work) *Runner {
	return &Runner{name: name, work: work, done: make(chan struct{})}
}

func (r *Runner) Name() string { return r.name }

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) IsActive() bool    { return r.State() == Active }
func (r *Runner) IsCompleted() bool { return r.State() == Completed }

func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) Subscribe(fn event.Handler[Event]) *event.Subscription {
	return r.hub.Subscribe(fn)
}

func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		return
	}
	r.state = Active
	workCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	logger.Log.Debug().Str("mission", r.name).Msg("mission started")
	r.emit(Event{Kind: Started})
	go r.execute(workCtx)
}

func (r *Runner) Stop() {
	r.mu.Lock()
	if r.state != Active {
		r.mu.Unlock()
		return
	}
	r.state = Stopped
	r.err = ErrStopped
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	logger.Log.Debug().Str("mission", r.name).Msg("mission stopped")
	r.closeDone()
}

// Point emits a PointReached event while the mission is Active.
func (r *Runner) Point(label string) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if r.State() != Active {
		return
	}
	r.publish(Event{Kind: PointReached, Point: label})
}

func (r *Runner) execute(ctx context.Context) {
	err := r.runWork(ctx)

	r.mu.Lock()
	if r.state != Active {
		r.mu.Unlock()
		return
	}
	switch {
	case err == nil:
		r.state = Completed
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		// Parent context went away: treat like Stop.
		r.state = Stopped
		r.err = ErrStopped
	default:
		r.state = Failed
		r.err = err
	}
	state, cause := r.state, r.err
	r.cancel()
	r.mu.Unlock()

	if state == Stopped {
		logger.Log.Debug().Str("mission", r.name).Msg("mission cancelled by context")
		r.closeDone()
		return
	}

	logger.Log.Debug().Str("mission", r.name).Stringer("outcome", state).Msg("mission finished")
	r.emit(Event{Kind: Finished, State: state, Err: cause})
	r.closeDone()
}

func (r *Runner) runWork(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in mission %s: %v", r.name, rec)
		}
	}()
	if r.work == nil {
		return nil
	}
	return r.work(ctx, r)
}

func (r *Runner) emit(ev Event) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.publish(ev)
}

func (r *Runner) publish(ev Event) {
	ev.Mission = r.name
	ev.At = time.Now()
	r.hub.Publish(ev)
}

func (r *Runner) closeDone() {
	r.closeOnce.Do(func() { close(r.done) })
}
