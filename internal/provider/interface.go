// Package provider defines the Generator interface and factory for
// selecting and constructing LLM backend implementations at runtime.
// Supported backends: Groq, OpenAI, Ollama, Google Gemini.
package provider

import "context"

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendGroq selects the Groq API (OpenAI-compatible).
	BackendGroq Backend = "groq"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Request is a single-turn generation request. The system prompt carries the
// grounding instructions and retrieved passages; User is the question.
type Request struct {
	// System is the system prompt.
	System string

	// User is the user message.
	User string

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32

	// MaxTokens caps the number of tokens the model may generate.
	MaxTokens int
}

// Generator is the interface for producing a completion from a Request.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	// Generate returns the model's text response for the given request.
	Generate(ctx context.Context, req *Request) (string, error)
}
