// Package command provides a mission that runs an external process. Every
// line the process writes to stdout is reported as a point.
package command

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"missionflow/internal/config"
	"missionflow/internal/mission"
	"missionflow/internal/utils"
)

const Kind = "command"

type Options struct {
	Cmd  string
	Args []string
	Dir  string
}

func New(desc config.MissionDescriptor) (mission.Mission, error) {
	cmd, err := utils.GetStringParam(desc.Params, "cmd")
	if err != nil {
		return nil, fmt.Errorf("command mission %q: %w", desc.Name, err)
	}
	if strings.TrimSpace(cmd) == "" {
		return nil, fmt.Errorf("command mission %q: cmd is empty", desc.Name)
	}
	args, err := utils.GetStringsParam(desc.Params, "args")
	if err != nil {
		return nil, fmt.Errorf("command mission %q: %w", desc.Name, err)
	}
	dir, err := utils.OptionalString(desc.Params, "dir", "")
	if err != nil {
		return nil, fmt.Errorf("command mission %q: %w", desc.Name, err)
	}
	return mission.New(desc.Name, Work(Options{Cmd: cmd, Args: args, Dir: dir})), nil
}

func Work(opts Options) mission.Work {
	return func(ctx context.Context, p mission.Progress) error {
		c := exec.CommandContext(ctx, opts.Cmd, opts.Args...)
		c.Dir = opts.Dir
		stdout, err := c.StdoutPipe()
		if err != nil {
			return fmt.Errorf("stdout pipe: %w", err)
		}
		var stderr strings.Builder
		c.Stderr = &stderr

		if err := c.Start(); err != nil {
			return fmt.Errorf("start %s: %w", opts.Cmd, err)
		}
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				p.Point(line)
			}
		}
		if err := c.Wait(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%s: %w: %s", opts.Cmd, err, msg)
			}
			return fmt.Errorf("%s: %w", opts.Cmd, err)
		}
		return nil
	}
}
