// Package file provides a mission that writes, appends to or removes a file
// on the local disk. Handy as a marker step between other missions.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"missionflow/internal/config"
	"missionflow/internal/mission"
	"missionflow/internal/utils"
)

const Kind = "file"

const (
	opWrite  = "write"
	opAppend = "append"
	opRemove = "remove"
)

// New reads params "path", "op" (write, append or remove; default append)
// and "content". "{time}" in content is replaced with the current time.
func New(desc config.MissionDescriptor) (mission.Mission, error) {
	path, err := utils.GetStringParam(desc.Params, "path")
	if err != nil {
		return nil, fmt.Errorf("file mission %q: %w", desc.Name, err)
	}
	op, err := utils.OptionalString(desc.Params, "op", opAppend)
	if err != nil {
		return nil, err
	}
	content, err := utils.OptionalString(desc.Params, "content", "")
	if err != nil {
		return nil, err
	}
	switch op {
	case opWrite, opAppend, opRemove:
	default:
		return nil, fmt.Errorf("file mission %q: unknown op %q", desc.Name, op)
	}
	return mission.New(desc.Name, Work(filepath.Clean(path), op, content)), nil
}

func Work(path, op, content string) mission.Work {
	return func(ctx context.Context, p mission.Progress) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch op {
		case opRemove:
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("could not delete file: %w", err)
			}
		default:
			if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
				return fmt.Errorf("could not create folder: %w", err)
			}
			flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			if op == opAppend {
				flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
			}
			f, err := os.OpenFile(path, flags, 0644)
			if err != nil {
				return fmt.Errorf("could not open or create file for writing: %w", err)
			}
			defer f.Close()
			if _, err := f.WriteString(expand(content) + "\n"); err != nil {
				return fmt.Errorf("could not write to file: %w", err)
			}
		}
		p.Point(op + " " + path)
		return nil
	}
}

func expand(content string) string {
	return strings.ReplaceAll(content, "{time}", time.Now().Format(time.RFC3339))
}
