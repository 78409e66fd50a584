package llm

import (
	"context"
	"testing"
)

func TestModelOrDefault(t *testing.T) {
	testCases := []struct {
		name, model, configured, expected string
	}{
		{name: "explicit wins", model: "llama3", configured: "phi4", expected: "llama3"},
		{name: "configured", model: " ", configured: "phi4", expected: "phi4"},
		{name: "fallback", expected: "default"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := modelOrDefault(tc.model, tc.configured, "default"); got != tc.expected {
				t.Errorf("got %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Backend: "carrier-pigeon"}); err == nil {
		t.Error("expected unsupported backend error")
	}
	if _, err := NewProvider(context.Background(), Config{Backend: "gemini"}); err == nil {
		t.Error("expected missing API key error")
	}

	p, err := NewProvider(context.Background(), Config{Backend: "ollama", OllamaHost: "http://127.0.0.1:11434"})
	if err != nil {
		t.Fatalf("ollama provider: %v", err)
	}
	if p.DefaultModel() != ollamaDefault {
		t.Errorf("DefaultModel = %q", p.DefaultModel())
	}

	if _, err := NewProvider(context.Background(), Config{Backend: "ollama", OllamaHost: "://bad"}); err == nil {
		t.Error("expected bad host error")
	}
}
