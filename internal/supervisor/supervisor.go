// Package supervisor owns every mission chain of a system, starts and stops
// them by name or all at once, and re-publishes their events.
//
// Chains run concurrently and independently. Each launched run is
// supervised: a run that fails or panics is captured as a Failure, reported
// to the optional failure handler and returned from Wait. It never takes a
// sibling chain down with it.
//
// The name registry is built once in New and cleared once in Teardown; in
// between it is only read.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"missionflow/internal/chain"
	"missionflow/internal/config"
	"missionflow/internal/event"
	"missionflow/internal/logger"
	"missionflow/internal/mission"
)

var (
	ErrUnknownChain = errors.New("unknown chain")
	ErrTornDown     = errors.New("mission system torn down")
)

// Failure is a chain run that ended with an error other than a stop.
type Failure struct {
	Chain string
	Err   error
	At    time.Time
}

func (f Failure) Error() string {
	return fmt.Sprintf("chain %s: %v", f.Chain, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

type Option func(*Manager)

func WithFailureHandler(fn func(Failure)) Option {
	return func(m *Manager) { m.onFailure = fn }
}

// WithChainOptions applies opts to every chain the manager builds.
func WithChainOptions(opts ...chain.Option) Option {
	return func(m *Manager) { m.chainOpts = append(m.chainOpts, opts...) }
}

type Manager struct {
	sys       *config.SystemDescriptor
	hub       event.Hub[chain.Event]
	onFailure func(Failure)
	chainOpts []chain.Option

	mu     sync.RWMutex
	chains []*chain.Chain
	byName map[string]*chain.Chain
	subs   []*event.Subscription
	torn   bool

	group    errgroup.Group
	fmu      sync.Mutex
	failures []Failure
	teardown sync.Once
}

// New validates sys and builds one chain per descriptor. If factory can
// report known kinds, unknown kinds are rejected here too.
func New(sys *config.SystemDescriptor, factory chain.Factory, releaser chain.Releaser, opts ...Option) (*Manager, error) {
	var kinds config.KindChecker
	if kc, ok := factory.(config.KindChecker); ok {
		kinds = kc
	}
	if err := config.Validate(sys, kinds); err != nil {
		return nil, err
	}

	m := &Manager{
		sys:    sys,
		byName: make(map[string]*chain.Chain, len(sys.Chains)),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, desc := range sys.Chains {
		c, err := chain.New(desc, factory, releaser, m.chainOpts...)
		if err != nil {
			for _, built := range m.chains {
				built.Dispose()
			}
			return nil, err
		}
		m.subs = append(m.subs, c.Subscribe(m.republish))
		m.chains = append(m.chains, c)
		m.byName[desc.Name] = c
	}
	logger.Log.Info().Int("chains", len(m.chains)).Msg("mission system initialized")
	return m, nil
}

func (m *Manager) republish(ev chain.Event) {
	level := zerolog.DebugLevel
	switch ev.Kind {
	case chain.MissionStarted, chain.MissionCompleted, chain.ChainCompleted:
		level = zerolog.InfoLevel
	}
	e := logger.Log.WithLevel(level).Str("chain", ev.Chain).Str("run_id", ev.RunID).Int("cycle", ev.Cycle)
	if ev.Mission != "" {
		e = e.Str("mission", ev.Mission)
	}
	if ev.Kind == chain.MissionCompleted {
		e = e.Stringer("outcome", ev.State)
	}
	e.Msg(ev.Kind.String())
	m.hub.Publish(ev)
}

// Subscribe receives every chain's events, tagged with the chain name.
func (m *Manager) Subscribe(fn event.Handler[chain.Event]) *event.Subscription {
	return m.hub.Subscribe(fn)
}

// Boot starts what the descriptors ask for: every chain when the system is
// marked auto_start_all, otherwise the chains marked auto_start.
func (m *Manager) Boot(ctx context.Context) int {
	if m.sys.AutoStartAll {
		return m.StartAll(ctx)
	}
	started := 0
	for _, c := range m.snapshot() {
		if c.Descriptor().AutoStart && !c.IsRunning() {
			m.launch(ctx, c)
			started++
		}
	}
	return started
}

// StartAll launches every chain that is not already running and returns
// without waiting for any of them.
func (m *Manager) StartAll(ctx context.Context) int {
	started := 0
	for _, c := range m.snapshot() {
		if !c.IsRunning() {
			m.launch(ctx, c)
			started++
		}
	}
	return started
}

// Start launches the named chain in the background.
func (m *Manager) Start(ctx context.Context, name string) error {
	c, err := m.lookup(name)
	if err != nil {
		return err
	}
	m.launch(ctx, c)
	return nil
}

// Run runs the named chain on the caller's goroutine and returns its result.
// A stopped run returns nil.
func (m *Manager) Run(ctx context.Context, name string) error {
	c, err := m.lookup(name)
	if err != nil {
		return err
	}
	return m.supervise(ctx, c)
}

func (m *Manager) Stop(name string) error {
	c, err := m.lookup(name)
	if err != nil {
		return err
	}
	c.Stop()
	return nil
}

func (m *Manager) StopAll() {
	for _, c := range m.snapshot() {
		c.Stop()
	}
}

// Wait blocks until every launched run has returned and reports all
// failures captured so far.
func (m *Manager) Wait() error {
	_ = m.group.Wait()
	fs := m.Failures()
	if len(fs) == 0 {
		return nil
	}
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (m *Manager) Failures() []Failure {
	m.fmu.Lock()
	defer m.fmu.Unlock()
	return append([]Failure(nil), m.failures...)
}

// Teardown stops every chain, disposes them (releasing all mission
// instances) and clears the registry. Later calls do nothing.
func (m *Manager) Teardown() {
	m.teardown.Do(func() {
		m.mu.Lock()
		m.torn = true
		chains := m.chains
		subs := m.subs
		m.chains = nil
		m.subs = nil
		m.byName = make(map[string]*chain.Chain)
		m.mu.Unlock()

		for _, c := range chains {
			c.Stop()
		}
		for _, c := range chains {
			c.Dispose()
		}
		for _, s := range subs {
			s.Release()
		}
		_ = m.group.Wait()
		logger.Log.Info().Int("chains", len(chains)).Int("subscribers", m.hub.Len()).Msg("mission system torn down")
	})
}

func (m *Manager) Chain(name string) (*chain.Chain, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byName[name]
	return c, ok
}

// Names lists chains in declaration order.
func (m *Manager) Names() []string {
	chains := m.snapshot()
	out := make([]string, len(chains))
	for i, c := range chains {
		out[i] = c.Name()
	}
	return out
}

func (m *Manager) Status() []chain.Status {
	chains := m.snapshot()
	out := make([]chain.Status, len(chains))
	for i, c := range chains {
		out[i] = c.Status()
	}
	return out
}

func (m *Manager) snapshot() []*chain.Chain {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*chain.Chain(nil), m.chains...)
}

func (m *Manager) lookup(name string) (*chain.Chain, error) {
	m.mu.RLock()
	torn := m.torn
	c, ok := m.byName[name]
	m.mu.RUnlock()

	if torn {
		return nil, ErrTornDown
	}
	if !ok {
		logger.Log.Warn().Str("chain", name).Msg("chain not found")
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, name)
	}
	return c, nil
}

func (m *Manager) launch(ctx context.Context, c *chain.Chain) {
	m.group.Go(func() error {
		m.mu.RLock()
		torn := m.torn
		m.mu.RUnlock()
		if torn {
			return nil
		}
		return m.supervise(ctx, c)
	})
}

func (m *Manager) supervise(ctx context.Context, c *chain.Chain) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in chain %s: %v", c.Name(), rec)
		}
		if err == nil {
			return
		}
		if errors.Is(err, mission.ErrStopped) || errors.Is(err, context.Canceled) || errors.Is(err, chain.ErrDisposed) {
			err = nil
			return
		}
		m.recordFailure(Failure{Chain: c.Name(), Err: err, At: time.Now()})
	}()
	return c.Run(ctx)
}

func (m *Manager) recordFailure(f Failure) {
	logger.Log.Error().Err(f.Err).Str("chain", f.Chain).Msg("chain run failed")
	m.fmu.Lock()
	m.failures = append(m.failures, f)
	m.fmu.Unlock()
	if m.onFailure != nil {
		m.onFailure(f)
	}
}
