// Package missions holds the mission kinds this tool can build and the
// Registry that turns descriptors into mission instances.
package missions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"missionflow/internal/config"
	"missionflow/internal/llm"
	"missionflow/internal/logger"
	"missionflow/internal/mission"
	"missionflow/internal/missions/command"
	"missionflow/internal/missions/file"
	"missionflow/internal/missions/group"
	"missionflow/internal/missions/prompt"
	"missionflow/internal/missions/scrape"
	"missionflow/internal/missions/timed"
)

var (
	ErrKindExists  = errors.New("mission kind already registered")
	ErrUnknownKind = errors.New("unknown mission kind")
)

type Constructor func(desc config.MissionDescriptor) (mission.Mission, error)

// Registry builds missions by kind and releases them. It satisfies both
// chain.Factory and chain.Releaser.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Constructor
	live  map[mission.Mission]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]Constructor),
		live:  make(map[mission.Mission]struct{}),
	}
}

// Default registers every built-in kind. llmCfg is only used the first time
// a prompt mission runs.
func Default(llmCfg llm.Config) *Registry {
	r := NewRegistry()
	source := prompt.Lazy(func(ctx context.Context) (llm.Provider, error) {
		return llm.NewProvider(ctx, llmCfg)
	})
	_ = r.Register(timed.Kind, timed.New)
	_ = r.Register(command.Kind, command.New)
	_ = r.Register(scrape.Kind, scrape.New)
	_ = r.Register(prompt.Kind, prompt.Constructor(source))
	_ = r.Register(file.Kind, file.New)
	_ = r.Register(group.Kind, group.Constructor(r))
	return r
}

func (r *Registry) Register(kind string, c Constructor) error {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" || c == nil {
		return fmt.Errorf("register mission kind: empty kind or nil constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[kind]; ok {
		return fmt.Errorf("%w: %s", ErrKindExists, kind)
	}
	r.kinds[kind] = c
	return nil
}

func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[strings.ToLower(strings.TrimSpace(kind))]
	return ok
}

// Kinds lists registered kinds alphabetically.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Create(desc config.MissionDescriptor) (mission.Mission, error) {
	r.mu.RLock()
	c, ok := r.kinds[strings.ToLower(strings.TrimSpace(desc.Kind))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, desc.Kind)
	}

	m, err := c(desc)
	if err != nil || m == nil {
		return m, err
	}
	r.mu.Lock()
	r.live[m] = struct{}{}
	r.mu.Unlock()
	return m, nil
}

// Release stops the mission if still active and closes it when it holds
// resources of its own.
func (r *Registry) Release(m mission.Mission) {
	if m == nil {
		return
	}
	r.mu.Lock()
	_, tracked := r.live[m]
	delete(r.live, m)
	r.mu.Unlock()

	m.Stop()
	if closer, ok := m.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Log.Warn().Err(err).Str("mission", m.Name()).Msg("release mission")
		}
	}
	if !tracked {
		logger.Log.Debug().Str("mission", m.Name()).Msg("released mission not created by this registry")
	}
}

// Live counts instances created and not yet released.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}
