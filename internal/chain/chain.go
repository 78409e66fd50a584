// Package chain runs an ordered list of missions one at a time.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"missionflow/internal/config"
	"missionflow/internal/event"
	"missionflow/internal/logger"
	"missionflow/internal/mission"
	"missionflow/internal/timer"
)

var (
	ErrNoInstance = errors.New("factory yielded no mission instance")
	ErrDisposed   = errors.New("chain disposed")
)

// Factory builds a fresh mission from its descriptor. A nil mission with a
// nil error means "no instance".
type Factory interface {
	Create(desc config.MissionDescriptor) (mission.Mission, error)
}

// Releaser frees whatever a mission instance holds. Called once per instance.
type Releaser interface {
	Release(m mission.Mission)
}

type FactoryFunc func(desc config.MissionDescriptor) (mission.Mission, error)

func (f FactoryFunc) Create(desc config.MissionDescriptor) (mission.Mission, error) { return f(desc) }

type ReleaserFunc func(m mission.Mission)

func (f ReleaserFunc) Release(m mission.Mission) { f(m) }

type slot struct {
	desc config.MissionDescriptor
	m    mission.Mission
}

type Option func(*Chain)

// WithLenientFactory drops missions the factory cannot build, with a
// warning, instead of failing.
func WithLenientFactory() Option {
	return func(c *Chain) { c.lenient = true }
}

type Chain struct {
	desc     config.ChainDescriptor
	factory  Factory
	releaser Releaser
	lenient  bool
	timer    *timer.Timer
	hub      event.Hub[Event]
	gate     sync.Mutex // held across the running check and Start

	mu       sync.Mutex
	slots    []slot
	index    int
	cycle    int
	running  bool
	disposed bool
	runID    string
	stop     chan struct{}
	runDone  chan struct{}
}

// New builds the chain and the first set of mission instances.
func New(desc config.ChainDescriptor, factory Factory, releaser Releaser, opts ...Option) (*Chain, error) {
	c := &Chain{
		desc:     desc,
		factory:  factory,
		releaser: releaser,
		timer:    timer.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, md := range desc.Missions {
		m, err := c.create(md)
		if err != nil {
			if c.lenient {
				logger.Log.Warn().Err(err).Str("chain", desc.Name).Str("mission", md.Name).Msg("dropping mission")
				continue
			}
			c.releaseAll(c.slots)
			return nil, err
		}
		c.slots = append(c.slots, slot{desc: md, m: m})
	}
	return c, nil
}

func (c *Chain) create(md config.MissionDescriptor) (mission.Mission, error) {
	m, err := c.factory.Create(md)
	if err != nil {
		return nil, fmt.Errorf("chain %q mission %q: %w", c.desc.Name, md.Name, err)
	}
	if m == nil {
		return nil, fmt.Errorf("chain %q mission %q: %w", c.desc.Name, md.Name, ErrNoInstance)
	}
	return m, nil
}

func (c *Chain) Name() string { return c.desc.Name }

func (c *Chain) Descriptor() config.ChainDescriptor { return c.desc }

func (c *Chain) Subscribe(fn event.Handler[Event]) *event.Subscription {
	return c.hub.Subscribe(fn)
}

func (c *Chain) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// CurrentMission is nil once the index has run past the last mission.
func (c *Chain) CurrentMission() mission.Mission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Chain) currentLocked() mission.Mission {
	if c.index < len(c.slots) {
		return c.slots[c.index].m
	}
	return nil
}

// Len is the number of missions the chain holds.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

type Status struct {
	Name     string
	Running  bool
	Disposed bool
	RunID    string
	Cycle    int
	Index    int
	Missions int
	Current  string
	Loop     bool
	Waiting  bool // a start or inter-loop delay is counting down
}

func (c *Chain) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Name:     c.desc.Name,
		Running:  c.running,
		Disposed: c.disposed,
		RunID:    c.runID,
		Cycle:    c.cycle,
		Index:    c.index,
		Missions: len(c.slots),
		Loop:     c.desc.Loop,
		Waiting:  c.running && c.timer.Pending(),
	}
	if m := c.currentLocked(); m != nil {
		st.Current = m.Name()
	}
	return st
}

// Run drives the missions in order until the sequence is exhausted (and not
// looping), the chain is stopped, ctx ends or a mission fails. It is a no-op
// when the chain is already running or holds no missions. A run ended by
// Stop returns mission.ErrStopped.
func (c *Chain) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.running || len(c.slots) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.index = 0
	c.cycle = 0
	c.runID = uuid.New().String()[:8]
	c.stop = make(chan struct{})
	c.runDone = make(chan struct{})
	runID, stop, runDone := c.runID, c.stop, c.runDone
	c.mu.Unlock()

	log := logger.Log.With().Str("chain", c.desc.Name).Str("run_id", runID).Logger()
	log.Info().Msg("chain run started")

	var finish sync.Once
	settle := func() {
		finish.Do(func() {
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
			close(runDone)
		})
	}
	// A panicking mission must not leave the chain marked as running.
	defer settle()

	err := c.execute(ctx, runID, stop)
	settle()

	switch {
	case err == nil:
		log.Info().Msg("chain completed")
		c.hub.Publish(Event{Kind: ChainCompleted, Chain: c.desc.Name, RunID: runID, Cycle: c.Status().Cycle, At: time.Now()})
	case errors.Is(err, mission.ErrStopped) || errors.Is(err, context.Canceled):
		log.Info().Err(err).Msg("chain stopped")
		c.hub.Publish(Event{Kind: ChainStopped, Chain: c.desc.Name, RunID: runID, Err: err, At: time.Now()})
	default:
		log.Error().Err(err).Msg("chain run failed")
		c.hub.Publish(Event{Kind: ChainStopped, Chain: c.desc.Name, RunID: runID, Err: err, At: time.Now()})
	}
	return err
}

func (c *Chain) execute(ctx context.Context, runID string, stop <-chan struct{}) error {
	for cycle := 1; ; cycle++ {
		if err := c.beginCycle(cycle); err != nil {
			return err
		}

		for i := 0; ; i++ {
			s, ok, err := c.advance(i)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if d := s.desc.StartDelay.Std(); d > 0 {
				if err := c.delay(ctx, stop, d); err != nil {
					return err
				}
			}
			if s.m == nil {
				logger.Log.Warn().Str("chain", c.desc.Name).Str("mission", s.desc.Name).Msg("skipping mission without instance")
				continue
			}
			if err := c.runMission(ctx, stop, s.m, runID, cycle, i); err != nil {
				return err
			}
		}

		if !c.desc.Loop {
			return nil
		}
		if !c.isRunning() {
			return mission.ErrStopped
		}
		if err := c.delay(ctx, stop, c.desc.InterLoopDelay.Std()); err != nil {
			return err
		}
	}
}

// beginCycle swaps out used instances for fresh ones; missions are single-use.
func (c *Chain) beginCycle(cycle int) error {
	c.mu.Lock()
	c.cycle = cycle
	c.index = 0
	var stale []mission.Mission
	var err error
	for i := range c.slots {
		old := c.slots[i].m
		if old != nil && old.State() == mission.Idle {
			continue
		}
		if old != nil {
			stale = append(stale, old)
		}
		m, cerr := c.create(c.slots[i].desc)
		if cerr != nil && !c.lenient {
			c.slots[i].m = nil
			err = cerr
			break
		}
		c.slots[i].m = m
	}
	c.mu.Unlock()

	for _, m := range stale {
		c.releaser.Release(m)
	}
	if err == nil {
		logger.Log.Debug().Str("chain", c.desc.Name).Int("cycle", cycle).Msg("cycle started")
	}
	return err
}

// advance moves the index to i; it never moves once the run is stopped.
func (c *Chain) advance(i int) (slot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return slot{}, false, mission.ErrStopped
	}
	if i >= len(c.slots) {
		c.index = len(c.slots)
		return slot{}, false, nil
	}
	c.index = i
	return c.slots[i], true, nil
}

func (c *Chain) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Chain) delay(ctx context.Context, stop <-chan struct{}, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	done := c.timer.Start(d)
	select {
	case elapsed := <-done:
		if !elapsed || !c.isRunning() {
			return mission.ErrStopped
		}
		return nil
	case <-stop:
		c.timer.Cancel()
		return mission.ErrStopped
	case <-ctx.Done():
		c.timer.Cancel()
		return ctx.Err()
	}
}

func (c *Chain) runMission(ctx context.Context, stop <-chan struct{}, m mission.Mission, runID string, cycle, index int) error {
	// Events raised while the start gate is held are queued and published
	// after it is released, so handlers may call Stop.
	var hmu sync.Mutex
	holding := true
	var held []mission.Event
	sub := m.Subscribe(func(ev mission.Event) {
		hmu.Lock()
		defer hmu.Unlock()
		if holding {
			held = append(held, ev)
			return
		}
		c.forward(ev, runID, cycle, index)
	})
	defer sub.Release()

	if !c.startIfRunning(ctx, m) {
		return mission.ErrStopped
	}

	hmu.Lock()
	holding = false
	for _, ev := range held {
		c.forward(ev, runID, cycle, index)
	}
	held = nil
	hmu.Unlock()

	select {
	case <-m.Done():
	case <-stop:
		m.Stop()
		return mission.ErrStopped
	case <-ctx.Done():
		m.Stop()
		return ctx.Err()
	}

	switch m.State() {
	case mission.Completed:
		return nil
	case mission.Failed:
		return fmt.Errorf("chain %q mission %q: %w", c.desc.Name, m.Name(), m.Err())
	default:
		return mission.ErrStopped
	}
}

func (c *Chain) startIfRunning(ctx context.Context, m mission.Mission) bool {
	c.gate.Lock()
	defer c.gate.Unlock()
	if !c.isRunning() {
		return false
	}
	m.Start(ctx)
	return true
}

func (c *Chain) forward(ev mission.Event, runID string, cycle, index int) {
	out := Event{
		Chain:   c.desc.Name,
		Mission: ev.Mission,
		RunID:   runID,
		Cycle:   cycle,
		Index:   index,
		Point:   ev.Point,
		State:   ev.State,
		Err:     ev.Err,
		At:      ev.At,
	}
	switch ev.Kind {
	case mission.Started:
		out.Kind = MissionStarted
	case mission.PointReached:
		out.Kind = MissionPoint
	case mission.Finished:
		out.Kind = MissionCompleted
	default:
		return
	}
	c.hub.Publish(out)
}

// Stop ends the current run: any pending delay is cancelled and the active
// mission, if any, is stopped. The run returns mission.ErrStopped.
func (c *Chain) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()

	// Wait out a mission start in progress so it is seen as active below.
	c.gate.Lock()
	current := c.CurrentMission()
	c.gate.Unlock()

	c.timer.Cancel()
	if current != nil && current.IsActive() {
		current.Stop()
	}
	logger.Log.Info().Str("chain", c.desc.Name).Msg("chain stop requested")
}

// Dispose stops the chain, waits for an in-flight run to unwind and releases
// every mission instance. The chain cannot run again.
func (c *Chain) Dispose() {
	c.Stop()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	runDone := c.runDone
	c.mu.Unlock()

	if runDone != nil {
		<-runDone
	}

	c.mu.Lock()
	slots := c.slots
	c.slots = nil
	c.index = 0
	c.mu.Unlock()

	c.releaseAll(slots)
	logger.Log.Debug().Str("chain", c.desc.Name).Int("released", len(slots)).Msg("chain disposed")
}

func (c *Chain) releaseAll(slots []slot) {
	for _, s := range slots {
		if s.m != nil && c.releaser != nil {
			c.releaser.Release(s.m)
		}
	}
}
