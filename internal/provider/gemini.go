package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini implements Generator against Google Gemini (AI Studio).
type Gemini struct {
	client *genai.Client
	model  string
}

// newGemini constructs a Gemini generator using an AI Studio API key.
func newGemini(ctx context.Context, cfg *ProviderGemini) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

// Generate sends a single-turn generation request with the system prompt
// attached as a system instruction.
func (g *Gemini) Generate(ctx context.Context, req *Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.User), cfg)
	if err != nil {
		return "", fmt.Errorf("provider: gemini generation: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("provider: gemini returned an empty response")
	}
	return text, nil
}

// Ping verifies the API key and model are usable with a cheap token count.
func (g *Gemini) Ping(ctx context.Context) error {
	if _, err := g.client.Models.CountTokens(ctx, g.model, genai.Text("ping"), nil); err != nil {
		return fmt.Errorf("model probe failed: %w", err)
	}
	return nil
}
