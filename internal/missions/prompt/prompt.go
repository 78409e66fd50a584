// Package prompt provides a mission that sends a prompt to an LLM backend and
// reports the reply as a point.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"missionflow/internal/config"
	"missionflow/internal/llm"
	"missionflow/internal/mission"
	"missionflow/internal/utils"
)

const Kind = "prompt"

// ProviderSource yields the provider on first use so configurations without
// prompt missions never need LLM credentials.
type ProviderSource func(ctx context.Context) (llm.Provider, error)

// Lazy memoizes the first successful provider.
func Lazy(build ProviderSource) ProviderSource {
	var mu sync.Mutex
	var cached llm.Provider
	return func(ctx context.Context) (llm.Provider, error) {
		mu.Lock()
		defer mu.Unlock()
		if cached != nil {
			return cached, nil
		}
		p, err := build(ctx)
		if err != nil {
			return nil, err
		}
		cached = p
		return p, nil
	}
}

type Options struct {
	Prompt string
	Model  string
	Expect string // reply must contain this, case-insensitive
}

// Constructor returns a factory function for prompt missions.
func Constructor(source ProviderSource) func(config.MissionDescriptor) (mission.Mission, error) {
	return func(desc config.MissionDescriptor) (mission.Mission, error) {
		var opts Options
		var err error
		if opts.Prompt, err = utils.GetStringParam(desc.Params, "prompt"); err != nil {
			return nil, fmt.Errorf("prompt mission %q: %w", desc.Name, err)
		}
		if opts.Model, err = utils.OptionalString(desc.Params, "model", ""); err != nil {
			return nil, fmt.Errorf("prompt mission %q: %w", desc.Name, err)
		}
		if opts.Expect, err = utils.OptionalString(desc.Params, "expect", ""); err != nil {
			return nil, fmt.Errorf("prompt mission %q: %w", desc.Name, err)
		}
		return mission.New(desc.Name, Work(source, opts)), nil
	}
}

func Work(source ProviderSource, opts Options) mission.Work {
	return func(ctx context.Context, p mission.Progress) error {
		provider, err := source(ctx)
		if err != nil {
			return fmt.Errorf("llm provider: %w", err)
		}
		reply, err := provider.Generate(ctx, opts.Prompt, opts.Model)
		if err != nil {
			return err
		}
		reply = strings.TrimSpace(reply)
		p.Point(reply)
		if opts.Expect != "" && !strings.Contains(strings.ToLower(reply), strings.ToLower(opts.Expect)) {
			return fmt.Errorf("reply does not contain %q", opts.Expect)
		}
		return nil
	}
}
