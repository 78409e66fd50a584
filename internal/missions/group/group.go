// Package group provides a mission that runs a set of child missions at the
// same time and completes when all of them have.
package group

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"missionflow/internal/config"
	"missionflow/internal/mission"
	"missionflow/internal/timer"
	"missionflow/internal/utils"
)

const (
	Kind         = "group"
	defaultLimit = 16
)

// Builder creates and releases child missions. The mission registry
// satisfies it.
type Builder interface {
	Create(desc config.MissionDescriptor) (mission.Mission, error)
	Release(m mission.Mission)
}

// Constructor reads params "missions" (a list of mission descriptors) and
// "limit" (children running at once, default 16).
func Constructor(b Builder) func(desc config.MissionDescriptor) (mission.Mission, error) {
	return func(desc config.MissionDescriptor) (mission.Mission, error) {
		children, err := decodeChildren(desc.Params["missions"])
		if err != nil {
			return nil, fmt.Errorf("group mission %q: %w", desc.Name, err)
		}
		if len(children) == 0 {
			return nil, fmt.Errorf("group mission %q: no child missions", desc.Name)
		}
		limit, err := utils.OptionalInt(desc.Params, "limit", defaultLimit)
		if err != nil {
			return nil, err
		}
		if limit <= 0 {
			return nil, fmt.Errorf("group mission %q: limit must be positive", desc.Name)
		}
		if kinds, ok := b.(config.KindChecker); ok {
			for _, c := range children {
				if !kinds.Has(c.Kind) {
					return nil, fmt.Errorf("group mission %q: child %q has unknown kind %q", desc.Name, c.Name, c.Kind)
				}
			}
		}
		return mission.New(desc.Name, Work(b, children, limit)), nil
	}
}

// decodeChildren accepts the list as any config format decoded it.
func decodeChildren(raw any) ([]config.MissionDescriptor, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode child missions: %w", err)
	}
	var children []config.MissionDescriptor
	if err := yaml.Unmarshal(data, &children); err != nil {
		return nil, fmt.Errorf("decode child missions: %w", err)
	}
	for i, c := range children {
		if c.Name == "" {
			return nil, fmt.Errorf("child mission #%d has no name", i+1)
		}
	}
	return children, nil
}

// Work starts every child (honoring its start delay), reports a point as
// each one completes and fails as soon as one child fails; the others are
// then stopped.
func Work(b Builder, children []config.MissionDescriptor, limit int) mission.Work {
	return func(ctx context.Context, p mission.Progress) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)

		for _, child := range children {
			g.Go(func() (rerr error) {
				defer func() {
					if rec := recover(); rec != nil {
						rerr = fmt.Errorf("panic in child %s: %v", child.Name, rec)
					}
				}()
				return runChild(gctx, b, child, p)
			})
		}
		return g.Wait()
	}
}

func runChild(ctx context.Context, b Builder, desc config.MissionDescriptor, p mission.Progress) error {
	if d := desc.StartDelay.Std(); d > 0 {
		if !timer.New().Wait(ctx, d) {
			return ctx.Err()
		}
	}

	m, err := b.Create(desc)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("child %q: no mission instance", desc.Name)
	}
	defer b.Release(m)

	m.Start(ctx)
	state, err := mission.Await(ctx, m)
	switch {
	case state == mission.Completed:
		p.Point(desc.Name)
		return nil
	case state == mission.Failed:
		return fmt.Errorf("child %q: %w", desc.Name, m.Err())
	case err != nil && !errors.Is(err, mission.ErrStopped):
		return err
	default:
		return fmt.Errorf("child %q: %w", desc.Name, mission.ErrStopped)
	}
}
