package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		raw      string
		expected zerolog.Level
	}{
		{raw: "", expected: zerolog.InfoLevel},
		{raw: "debug", expected: zerolog.DebugLevel},
		{raw: " WARNING ", expected: zerolog.WarnLevel},
		{raw: "error", expected: zerolog.ErrorLevel},
		{raw: "off", expected: zerolog.Disabled},
		{raw: "bogus", expected: zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := ParseLevel(tc.raw); got != tc.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.raw, got, tc.expected)
			}
		})
	}
}

func TestInitWritesToFile(t *testing.T) {
	old := Log
	t.Cleanup(func() { Log = old })

	path := filepath.Join(t.TempDir(), "missionflow.log")
	if err := Init(path, "info"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Log.Info().Str("chain", "Intro").Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"chain":"Intro"`) {
		t.Errorf("log file missing structured field, got: %s", data)
	}
}
