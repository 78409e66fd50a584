// Package llm talks to a text-generation backend for prompt missions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotInitialized = errors.New("llm provider not initialized")

type Config struct {
	Backend    string
	Model      string
	OllamaHost string
	APIKey     string
}

type Provider interface {
	DefaultModel() string
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// NewProvider builds the backend named in cfg. Gemini is the default.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "gemini"
	}
	switch backend {
	case "ollama":
		return newOllamaProvider(cfg)
	case "gemini":
		return newGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", backend)
	}
}

func modelOrDefault(model, configured, def string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	if m := strings.TrimSpace(configured); m != "" {
		return m
	}
	return def
}
