package provider

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "groq/valid",
			cfg: Config{
				Backend: BackendGroq,
				Groq:    ProviderGroq{APIKey: "gsk-test", Model: "llama-3.3-70b-versatile"},
			},
		},
		{
			name:    "groq/missing api key",
			cfg:     Config{Backend: BackendGroq, Groq: ProviderGroq{Model: "llama-3.3-70b-versatile"}},
			wantErr: "GROQ_API_KEY",
		},
		{
			name:    "groq/missing model",
			cfg:     Config{Backend: BackendGroq, Groq: ProviderGroq{APIKey: "gsk-test"}},
			wantErr: "GROQ_MODEL",
		},
		{
			name: "openai/valid",
			cfg: Config{
				Backend: BackendOpenAI,
				OpenAI:  ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o-mini"},
			},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o-mini"}},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name: "ollama/valid without key",
			cfg: Config{
				Backend: BackendOllama,
				Ollama:  ProviderOllama{Host: "http://localhost:11434", Model: "llama3"},
			},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}},
			wantErr: "OLLAMA_MODEL",
		},
		{
			name: "gemini/valid",
			cfg: Config{
				Backend: BackendGemini,
				Gemini:  ProviderGemini{APIKey: "AIza-test", Model: "gemini-2.0-flash"},
			},
		},
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-2.0-flash"}},
			wantErr: "GOOGLE_API_KEY",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "mystery"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}
