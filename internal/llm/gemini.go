package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const geminiDefault = "gemini-2.0-flash"

type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGeminiProvider(ctx context.Context, cfg Config) (*geminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client init: %w", err)
	}
	return &geminiProvider{client: c, model: cfg.Model}, nil
}

func (p *geminiProvider) DefaultModel() string { return geminiDefault }

func (p *geminiProvider) Generate(ctx context.Context, prompt, model string) (string, error) {
	if p.client == nil {
		return "", ErrNotInitialized
	}
	m := modelOrDefault(model, p.model, geminiDefault)
	resp, err := p.client.Models.GenerateContent(ctx, m, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
