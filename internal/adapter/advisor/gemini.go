package advisor

import (
	"context"
	"fmt"

	"goldpayments/internal/core/ports"

	"google.golang.org/genai"
)

// Gemini implements ports.TextGenerator with the Gemini API.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini client. baseURL overrides the API endpoint and
// is empty in production.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Generate sends one prompt and returns the response text.
func (g *Gemini) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, params.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(params.Temperature),
		TopP:        genai.Ptr(params.TopP),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}

// Name returns the provider name.
func (g *Gemini) Name() string {
	return "gemini"
}
