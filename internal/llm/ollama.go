package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const ollamaDefault = "phi4:latest"

type ollamaProvider struct {
	client *api.Client
	model  string
}

func newOllamaProvider(cfg Config) (*ollamaProvider, error) {
	var c *api.Client
	if host := strings.TrimSpace(cfg.OllamaHost); host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("ollama: bad host %q: %w", host, err)
		}
		c = api.NewClient(u, http.DefaultClient)
	} else {
		var err error
		c, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client init: %w", err)
		}
	}
	return &ollamaProvider{client: c, model: cfg.Model}, nil
}

func (p *ollamaProvider) DefaultModel() string { return ollamaDefault }

func (p *ollamaProvider) Generate(ctx context.Context, prompt, model string) (string, error) {
	if p.client == nil {
		return "", ErrNotInitialized
	}
	stream := false
	req := &api.GenerateRequest{
		Model:  modelOrDefault(model, p.model, ollamaDefault),
		Prompt: prompt,
		Stream: &stream,
	}
	var out strings.Builder
	if err := p.client.Generate(ctx, req, func(gr api.GenerateResponse) error {
		out.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out.String(), nil
}
