// Package budget provides token budget estimation and passage trimming for
// prompt construction. Because whochat supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import "github.com/melakudessie/WHO-AMR-chat/internal/rag"

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B)
	// while leaving room for the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimatePassages returns the estimated total token count for a slice of
// passages, including a small per-passage overhead for the page tag and
// separator each passage carries in the prompt.
func EstimatePassages(passages []rag.Passage) int {
	total := 0
	for _, p := range passages {
		total += 8
		total += Estimate(p.Text)
	}
	return total
}

// TrimPassages drops passages from the end of the slice until the estimated
// token count of fixed + passages fits within maxTokens. fixed is the prompt
// text that must not be trimmed (system instructions and the question).
// Passages arrive ranked most-relevant-first, so trimming the tail discards
// the least relevant context.
//
// Returns the trimmed slice. If even a single passage exceeds the budget,
// one passage is kept so the model always sees some document context.
func TrimPassages(fixed string, passages []rag.Passage, maxTokens int) []rag.Passage {
	if len(passages) == 0 {
		return passages
	}

	fixedTokens := Estimate(fixed)

	for len(passages) > 1 {
		if fixedTokens+EstimatePassages(passages) <= maxTokens {
			break
		}
		passages = passages[:len(passages)-1]
	}
	return passages
}
