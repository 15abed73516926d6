// Package synthesis turns retrieved passages and a question into a grounded,
// citation-carrying answer by prompting a provider.Generator.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/melakudessie/WHO-AMR-chat/internal/budget"
	"github.com/melakudessie/WHO-AMR-chat/internal/provider"
	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
)

// systemPrompt instructs the model to answer strictly from the supplied
// context and to cite page numbers inline.
const systemPrompt = "You are an expert medical AI assistant analyzing PDF documents. " +
	"Your role is to provide accurate, well-sourced answers based on the document.\n\n" +
	"INSTRUCTIONS:\n" +
	"1. Use ONLY the provided context to answer questions\n" +
	"2. Always cite page numbers when referencing information (e.g., [Page 12])\n" +
	"3. If information is not in the context, clearly state: 'I cannot find that information in the provided PDF.'\n" +
	"4. Be concise but comprehensive\n" +
	"5. Use professional terminology when appropriate\n" +
	"6. If context is ambiguous or contradictory, acknowledge this\n\n" +
	"CONTEXT:\n"

// passageSeparator joins the passages inside the context block.
const passageSeparator = "\n\n---\n\n"

// Synthesizer produces answers from passages. It holds the generation tuning
// so every query on a session uses the same settings.
type Synthesizer struct {
	gen         provider.Generator
	temperature float32
	maxTokens   int
}

// New constructs a Synthesizer around the given generator.
func New(gen provider.Generator, temperature float32, maxTokens int) *Synthesizer {
	return &Synthesizer{gen: gen, temperature: temperature, maxTokens: maxTokens}
}

// Synthesize answers the question from the passages. The returned Answer's
// CitedPages come from the passages actually supplied, never from parsing
// the model's prose. A backend failure is reported inside the Answer as a
// classified Failure rather than as an error, so callers can surface it in
// an answer-shaped response.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, passages []rag.Passage) rag.Answer {
	// Passages arrive ranked; trim the least relevant tail if the prompt
	// would overflow the context window.
	passages = budget.TrimPassages(systemPrompt+question, passages, budget.DefaultMaxContextTokens)

	text, err := s.gen.Generate(ctx, &provider.Request{
		System:      systemPrompt + contextBlock(passages),
		User:        question,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return rag.Answer{Failure: provider.Classify(err)}
	}
	return rag.Answer{
		Text:       text,
		CitedPages: rag.CitedPages(passages),
	}
}

// contextBlock renders the passages for the prompt. Paginated passages are
// tagged with their page number so the model can cite them; passages without
// pagination are tagged by ordinal position instead.
func contextBlock(passages []rag.Passage) string {
	entries := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Page > 0 {
			entries = append(entries, fmt.Sprintf("[Page %d]\n%s", p.Page, p.Text))
		} else {
			entries = append(entries, fmt.Sprintf("[Passage %d]\n%s", p.Seq+1, p.Text))
		}
	}
	return strings.Join(entries, passageSeparator)
}
