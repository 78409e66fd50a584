// Package metrics folds chain events into per-run and per-mission timings.
package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"missionflow/internal/chain"
	"missionflow/internal/mission"
)

const (
	OutcomeRunning   = "running"
	OutcomeCompleted = "completed"
	OutcomeStopped   = "stopped"
	OutcomeFailed    = "failed"
)

type MissionMetrics struct {
	Mission    string    `json:"mission"`
	Cycle      int       `json:"cycle"`
	Index      int       `json:"index"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Points     int       `json:"points"`
	Outcome    string    `json:"outcome"`
	Err        string    `json:"err,omitempty"`
}

type RunMetrics struct {
	Chain      string           `json:"chain"`
	RunID      string           `json:"run_id"`
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	DurationMs int64            `json:"duration_ms"`
	Cycles     int              `json:"cycles"`
	Outcome    string           `json:"outcome"`
	Err        string           `json:"err,omitempty"`
	Missions   []MissionMetrics `json:"missions"`
}

// Finalize computes derived fields once End is known.
func (r *RunMetrics) Finalize() {
	if !r.End.IsZero() {
		r.DurationMs = r.End.Sub(r.Start).Milliseconds()
	}
	for i := range r.Missions {
		m := &r.Missions[i]
		if !m.End.IsZero() {
			m.DurationMs = m.End.Sub(m.Start).Milliseconds()
		}
	}
}

// Recorder is an event handler; subscribe its Observe method to a chain or
// to the mission system.
type Recorder struct {
	mu    sync.Mutex
	runs  map[string]*RunMetrics
	order []string
}

func NewRecorder() *Recorder {
	return &Recorder{runs: make(map[string]*RunMetrics)}
}

func (r *Recorder) Observe(ev chain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.runs[ev.RunID]
	if run == nil {
		run = &RunMetrics{Chain: ev.Chain, RunID: ev.RunID, Start: ev.At, Outcome: OutcomeRunning}
		r.runs[ev.RunID] = run
		r.order = append(r.order, ev.RunID)
	}
	if ev.Cycle > run.Cycles {
		run.Cycles = ev.Cycle
	}

	switch ev.Kind {
	case chain.MissionStarted:
		run.Missions = append(run.Missions, MissionMetrics{
			Mission: ev.Mission,
			Cycle:   ev.Cycle,
			Index:   ev.Index,
			Start:   ev.At,
			Outcome: OutcomeRunning,
		})
	case chain.MissionPoint:
		if m := open(run); m != nil {
			m.Points++
		}
	case chain.MissionCompleted:
		if m := open(run); m != nil {
			m.End = ev.At
			m.Outcome = missionOutcome(ev.State)
			if ev.Err != nil {
				m.Err = ev.Err.Error()
			}
		}
	case chain.ChainCompleted, chain.ChainStopped:
		run.End = ev.At
		run.Outcome = runOutcome(ev)
		if ev.Err != nil && run.Outcome == OutcomeFailed {
			run.Err = ev.Err.Error()
		}
		if m := open(run); m != nil {
			m.End = ev.At
			m.Outcome = OutcomeStopped
		}
	}
	run.Finalize()
}

// Runs returns copies of every run seen, oldest first.
func (r *Recorder) Runs() []RunMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunMetrics, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.runs[id]))
	}
	return out
}

func (r *Recorder) Run(runID string) (RunMetrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return RunMetrics{}, false
	}
	return clone(run), true
}

func clone(run *RunMetrics) RunMetrics {
	c := *run
	c.Missions = append([]MissionMetrics(nil), run.Missions...)
	return c
}

// open is the latest mission of the run that has not ended yet.
func open(run *RunMetrics) *MissionMetrics {
	if len(run.Missions) == 0 {
		return nil
	}
	m := &run.Missions[len(run.Missions)-1]
	if !m.End.IsZero() {
		return nil
	}
	return m
}

func missionOutcome(s mission.State) string {
	switch s {
	case mission.Completed:
		return OutcomeCompleted
	case mission.Failed:
		return OutcomeFailed
	default:
		return OutcomeStopped
	}
}

func runOutcome(ev chain.Event) string {
	switch {
	case ev.Kind == chain.ChainCompleted:
		return OutcomeCompleted
	case ev.Err == nil, errors.Is(ev.Err, mission.ErrStopped), errors.Is(ev.Err, context.Canceled):
		return OutcomeStopped
	default:
		return OutcomeFailed
	}
}
