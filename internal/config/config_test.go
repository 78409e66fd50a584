package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const introTOML = `
auto_start_all = true

[[chains]]
name = "Intro"
loop = true
inter_loop_delay = "500ms"

  [[chains.missions]]
  name = "A"
  kind = "timed"
    [chains.missions.params]
    duration = "1s"

  [[chains.missions]]
  name = "B"
  kind = "timed"
  start_delay = "2s"
`

const introYAML = `
auto_start_all: true
chains:
  - name: Intro
    loop: true
    inter_loop_delay: 500ms
    missions:
      - name: A
        kind: timed
        params:
          duration: 1s
      - name: B
        kind: timed
        start_delay: 2s
`

const introJSON = `{
  "auto_start_all": true,
  "chains": [
    {
      "name": "Intro",
      "loop": true,
      "inter_loop_delay": "500ms",
      "missions": [
        {"name": "A", "kind": "timed", "params": {"duration": "1s"}},
        {"name": "B", "kind": "timed", "start_delay": "2s"}
      ]
    }
  ]
}`

func TestParseFormats(t *testing.T) {
	testCases := []struct {
		name   string
		data   string
		format Format
	}{
		{name: "toml", data: introTOML, format: FormatTOML},
		{name: "yaml", data: introYAML, format: FormatYAML},
		{name: "json", data: introJSON, format: FormatJSON},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sys, err := Parse([]byte(tc.data), tc.format)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !sys.AutoStartAll {
				t.Error("expected auto_start_all")
			}
			if len(sys.Chains) != 1 {
				t.Fatalf("expected 1 chain, got %d", len(sys.Chains))
			}
			c := sys.Chains[0]
			if c.Name != "Intro" || !c.Loop || c.InterLoopDelay.Std() != 500*time.Millisecond {
				t.Errorf("unexpected chain: %+v", c)
			}
			if len(c.Missions) != 2 {
				t.Fatalf("expected 2 missions, got %d", len(c.Missions))
			}
			if c.Missions[0].StartDelay != 0 || c.Missions[1].StartDelay.Std() != 2*time.Second {
				t.Errorf("unexpected delays: %v, %v", c.Missions[0].StartDelay, c.Missions[1].StartDelay)
			}
			if c.Missions[0].Params["duration"] != "1s" {
				t.Errorf("params not decoded: %v", c.Missions[0].Params)
			}
		})
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	testCases := []struct {
		name   string
		data   string
		format Format
	}{
		{name: "toml", data: "[[chains]]\nnmae = \"x\"\n", format: FormatTOML},
		{name: "yaml", data: "chains:\n  - nmae: x\n", format: FormatYAML},
		{name: "json", data: `{"chains":[{"nmae":"x"}]}`, format: FormatJSON},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.data), tc.format); err == nil {
				t.Error("expected an error for a misspelled key")
			}
		})
	}
}

func TestParseBadDuration(t *testing.T) {
	_, err := Parse([]byte(`{"chains":[{"name":"x","inter_loop_delay":"soon"}]}`), FormatJSON)
	if err == nil {
		t.Fatal("expected a duration parse error")
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system.yml")
	if err := os.WriteFile(path, []byte(introYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	sys, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := sys.ChainNames(); !reflect.DeepEqual(got, []string{"Intro"}) {
		t.Errorf("ChainNames = %v", got)
	}
	if _, ok := sys.Lookup("Intro"); !ok {
		t.Error("Lookup(Intro) failed")
	}
	if _, ok := sys.Lookup("Outro"); ok {
		t.Error("Lookup(Outro) should miss")
	}

	if _, err := Load(filepath.Join(dir, "system.ini")); err == nil {
		t.Error("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected read error for a missing file")
	}
}

type kindSet map[string]bool

func (k kindSet) Has(kind string) bool { return k[kind] }

func TestValidate(t *testing.T) {
	kinds := kindSet{"timed": true}

	testCases := []struct {
		name    string
		sys     *SystemDescriptor
		wantErr error
	}{
		{
			name: "valid",
			sys: &SystemDescriptor{Chains: []ChainDescriptor{
				{Name: "Intro", Missions: []MissionDescriptor{{Name: "A", Kind: "timed"}}},
				{Name: "Outro"},
			}},
		},
		{
			name: "duplicate chain",
			sys: &SystemDescriptor{Chains: []ChainDescriptor{
				{Name: "Intro"}, {Name: "Intro"},
			}},
			wantErr: ErrDuplicateChain,
		},
		{
			name:    "unnamed chain",
			sys:     &SystemDescriptor{Chains: []ChainDescriptor{{Name: "  "}}},
			wantErr: ErrInvalidDescriptor,
		},
		{
			name: "negative delay",
			sys: &SystemDescriptor{Chains: []ChainDescriptor{
				{Name: "Intro", Missions: []MissionDescriptor{{Name: "A", Kind: "timed", StartDelay: Duration(-time.Second)}}},
			}},
			wantErr: ErrInvalidDescriptor,
		},
		{
			name: "unknown kind",
			sys: &SystemDescriptor{Chains: []ChainDescriptor{
				{Name: "Intro", Missions: []MissionDescriptor{{Name: "A", Kind: "teleport"}}},
			}},
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "nil",
			sys:     nil,
			wantErr: ErrInvalidDescriptor,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.sys, kinds)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenv, []byte("MISSIONFLOW_LOG_LEVEL=debug\nMISSIONFLOW_STRICT=false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MISSIONFLOW_CONFIG", "system.toml")
	t.Setenv("MISSIONFLOW_LOG_LEVEL", "")
	os.Unsetenv("MISSIONFLOW_LOG_LEVEL")
	t.Setenv("MISSIONFLOW_STRICT", "")
	os.Unsetenv("MISSIONFLOW_STRICT")

	s, err := LoadSettings(dotenv, filepath.Join(dir, "absent.env"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.ConfigPath != "system.toml" {
		t.Errorf("ConfigPath = %q", s.ConfigPath)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from dotenv", s.LogLevel)
	}
	if s.Strict {
		t.Error("Strict should be false from dotenv")
	}
	if s.LogFile != "missionflow.log" {
		t.Errorf("LogFile default = %q", s.LogFile)
	}
}
