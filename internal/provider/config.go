package provider

import "fmt"

// ProviderGroq holds Groq-specific settings.
type ProviderGroq struct {
	// APIKey is the Groq API key (GROQ_API_KEY).
	APIKey string
	// Model is the model name (e.g. "llama-3.3-70b-versatile").
	Model string
}

// ProviderOpenAI holds OpenAI-specific settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI API key (OPENAI_API_KEY).
	APIKey string
	// Model is the model name (e.g. "gpt-4o").
	Model string
}

// ProviderOllama holds Ollama-specific settings.
type ProviderOllama struct {
	// Host is the Ollama server base URL.
	Host string
	// Model is the model name (e.g. "llama3").
	Model string
}

// ProviderGemini holds Gemini-specific settings.
type ProviderGemini struct {
	// APIKey is the Google AI Studio API key (GOOGLE_API_KEY).
	APIKey string
	// Model is the model name (e.g. "gemini-2.0-flash").
	Model string
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the section matching
// Backend is consulted.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Groq   ProviderGroq
	OpenAI ProviderOpenAI
	Ollama ProviderOllama
	Gemini ProviderGemini
}

// Validate checks that the selected backend's section carries everything its
// constructor needs. Error messages name the environment variable the caller
// should set, since configs are normally built from the environment.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGroq:
		if c.Groq.APIKey == "" {
			return fmt.Errorf("provider: GROQ_API_KEY is required for groq backend")
		}
		if c.Groq.Model == "" {
			return fmt.Errorf("provider: GROQ_MODEL is required for groq backend")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("provider: OPENAI_MODEL is required for openai backend")
		}
	case BackendOllama:
		if c.Ollama.Model == "" {
			return fmt.Errorf("provider: OLLAMA_MODEL is required for ollama backend")
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
		}
		if c.Gemini.Model == "" {
			return fmt.Errorf("provider: GEMINI_MODEL is required for gemini backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: groq, openai, ollama, gemini", c.Backend)
	}
	return nil
}
