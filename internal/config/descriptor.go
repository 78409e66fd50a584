package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration read from strings like "2s" or "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MissionDescriptor names a mission, the delay before it starts and the kind
// of mission the factory should build from Params.
type MissionDescriptor struct {
	Name       string         `json:"name" toml:"name" yaml:"name"`
	Kind       string         `json:"kind" toml:"kind" yaml:"kind"`
	StartDelay Duration       `json:"start_delay" toml:"start_delay" yaml:"start_delay"`
	Params     map[string]any `json:"params,omitempty" toml:"params" yaml:"params,omitempty"`
}

type ChainDescriptor struct {
	Name           string              `json:"name" toml:"name" yaml:"name"`
	AutoStart      bool                `json:"auto_start" toml:"auto_start" yaml:"auto_start"`
	Loop           bool                `json:"loop" toml:"loop" yaml:"loop"`
	InterLoopDelay Duration            `json:"inter_loop_delay" toml:"inter_loop_delay" yaml:"inter_loop_delay"`
	Missions       []MissionDescriptor `json:"missions" toml:"missions" yaml:"missions"`
}

type SystemDescriptor struct {
	AutoStartAll bool              `json:"auto_start_all" toml:"auto_start_all" yaml:"auto_start_all"`
	Chains       []ChainDescriptor `json:"chains" toml:"chains" yaml:"chains"`
}

// ChainNames returns chain names in declaration order.
func (s *SystemDescriptor) ChainNames() []string {
	names := make([]string, 0, len(s.Chains))
	for _, c := range s.Chains {
		names = append(names, c.Name)
	}
	return names
}

// Lookup finds a chain descriptor by name.
func (s *SystemDescriptor) Lookup(name string) (ChainDescriptor, bool) {
	for _, c := range s.Chains {
		if c.Name == name {
			return c, true
		}
	}
	return ChainDescriptor{}, false
}
