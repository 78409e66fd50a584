// Package timed provides a mission that completes on its own after a fixed
// duration, reporting evenly spaced points along the way.
package timed

import (
	"context"
	"fmt"
	"time"

	"missionflow/internal/config"
	"missionflow/internal/mission"
	"missionflow/internal/timer"
	"missionflow/internal/utils"
)

const (
	Kind            = "timed"
	defaultDuration = 3 * time.Second
)

// New reads params "duration" (default 3s) and "points" (default 1, so a
// single point at the midpoint).
func New(desc config.MissionDescriptor) (mission.Mission, error) {
	d, err := utils.OptionalDuration(desc.Params, "duration", defaultDuration)
	if err != nil {
		return nil, err
	}
	points, err := utils.OptionalInt(desc.Params, "points", 1)
	if err != nil {
		return nil, err
	}
	if d < 0 || points < 0 {
		return nil, fmt.Errorf("timed mission %q: duration and points must be non-negative", desc.Name)
	}
	return mission.New(desc.Name, Work(d, points)), nil
}

// Work splits d into points+1 equal segments and reports a point between each.
func Work(d time.Duration, points int) mission.Work {
	return func(ctx context.Context, p mission.Progress) error {
		tm := timer.New()
		segment := d / time.Duration(points+1)
		for i := 1; i <= points; i++ {
			if err := wait(ctx, tm, segment); err != nil {
				return err
			}
			p.Point(fmt.Sprintf("%d/%d", i, points))
		}
		return wait(ctx, tm, segment)
	}
}

func wait(ctx context.Context, tm *timer.Timer, d time.Duration) error {
	if tm.Wait(ctx, d) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}
