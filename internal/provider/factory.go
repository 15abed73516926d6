package provider

import (
	"context"
	"fmt"
	"os"
)

// NewFromEnv constructs a Generator by reading provider configuration from
// environment variables. MODEL_PROVIDER selects the backend; each provider
// uses its own native credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER = groq | openai | ollama | gemini (default: groq)
//
//	Groq:    GROQ_API_KEY, GROQ_MODEL (default: llama-3.3-70b-versatile)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o-mini)
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-2.0-flash)
func NewFromEnv(ctx context.Context) (Generator, error) {
	cfg := &Config{
		Backend: Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendGroq))),
		Groq: ProviderGroq{
			APIKey: os.Getenv("GROQ_API_KEY"),
			Model:  getEnvOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		},
		OpenAI: ProviderOpenAI{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Ollama: ProviderOllama{
			Host:  getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model: getEnvOrDefault("OLLAMA_MODEL", "llama3"),
		},
		Gemini: ProviderGemini{
			APIKey: os.Getenv("GOOGLE_API_KEY"),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
	}
	return New(ctx, cfg)
}

// New constructs a Generator from an explicit Config, delegating to the
// appropriate backend constructor. It validates the config first so callers
// get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendGroq:
		return newOpenAICompat(cfg.Groq.APIKey, groqBaseURL, cfg.Groq.Model), nil
	case BackendOpenAI:
		return newOpenAICompat(cfg.OpenAI.APIKey, "", cfg.OpenAI.Model), nil
	case BackendOllama:
		// Ollama exposes an OpenAI-compatible surface under /v1 and
		// ignores the API key.
		return newOpenAICompat("ollama", cfg.Ollama.Host+"/v1", cfg.Ollama.Model), nil
	case BackendGemini:
		return newGemini(ctx, &cfg.Gemini)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q — valid values: groq, openai, ollama, gemini", cfg.Backend)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
