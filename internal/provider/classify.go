package provider

import (
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
)

// Classify maps a backend failure to a stable failure category. Structured
// HTTP status codes are checked first; when a backend wraps the status away,
// the error text is matched best-effort. Anything unrecognized degrades to
// CategoryUnknown rather than guessing.
func Classify(err error) *rag.GenerationError {
	if err == nil {
		return nil
	}

	if code, ok := statusCode(err); ok {
		switch {
		case code == 429:
			return &rag.GenerationError{Category: rag.FailureRateLimited, Message: err.Error()}
		case code == 401 || code == 403:
			return &rag.GenerationError{Category: rag.FailureAuthFailed, Message: err.Error()}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "429"):
		return &rag.GenerationError{Category: rag.FailureRateLimited, Message: err.Error()}
	case strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "api key not valid") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "403"):
		return &rag.GenerationError{Category: rag.FailureAuthFailed, Message: err.Error()}
	}
	return &rag.GenerationError{Category: rag.FailureUnknown, Message: err.Error()}
}

// statusCode extracts an HTTP status from the structured error types the
// supported backends return.
func statusCode(err error) (int, bool) {
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return oaiErr.HTTPStatusCode, true
	}
	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return gerr.Code, true
	}
	return 0, false
}
