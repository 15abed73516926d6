package provider

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// Default API base URLs for the OpenAI-compatible backends.
const (
	groqBaseURL = "https://api.groq.com/openai/v1"
)

// OpenAICompat implements Generator against any OpenAI-compatible chat
// completions API. Groq, OpenAI itself, and Ollama's /v1 shim all speak
// this protocol, so one client covers three backends.
type OpenAICompat struct {
	client *openai.Client
	model  string
}

// newOpenAICompat builds a client for the given base URL. An empty baseURL
// selects the official OpenAI endpoint.
func newOpenAICompat(apiKey, baseURL, model string) *OpenAICompat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompat{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Generate sends a system+user chat completion request and returns the
// model's text response.
func (g *OpenAICompat) Generate(ctx context.Context, req *Request) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		// go-openai serialises Temperature with omitempty, so an exact 0
		// would vanish from the request body and the backend would fall
		// back to its own default. The smallest positive float32 survives
		// serialisation and is treated as 0 by the API.
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("provider: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping verifies the backend is reachable and the credential is accepted by
// listing available models. Used by the server's readiness checks.
func (g *OpenAICompat) Ping(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("model probe failed: %w", err)
	}
	return nil
}
