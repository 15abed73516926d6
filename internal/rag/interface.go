// Package rag defines the domain types and interfaces for the
// retrieval-augmented question-answering pipeline: pages, passages,
// embeddings, the vector index, and answers. Concrete implementations
// (HTTP embedders, generation backends) satisfy these interfaces so the
// pipeline layer never depends on a specific backend.
package rag

import (
	"context"
	"sort"
)

// Page is one unit of extracted document text as supplied by a document
// source collaborator (e.g. the PDF extractor). The core never parses file
// bytes itself.
type Page struct {
	// Number is the 1-based page number. Zero means the source format has
	// no pagination.
	Number int

	// Text is the extracted plain text of the page.
	Text string
}

// Passage is a bounded contiguous span of document text, the atomic
// retrievable unit. Passages are immutable once produced by the chunker.
type Passage struct {
	// Text is the passage content.
	Text string

	// Page is the 1-based page number the passage was extracted from.
	// Zero means the source had no pagination; such passages never
	// contribute a citation.
	Page int

	// Seq preserves original document order across all passages of one
	// document. It is unique within a document and identifies the passage.
	Seq int
}

// FailureCategory is the best-effort classification of a failed generation
// call. Classification degrades to FailureUnknown rather than guessing.
type FailureCategory string

const (
	// FailureRateLimited indicates the generation endpoint rejected the
	// call due to rate or quota limits.
	FailureRateLimited FailureCategory = "rate_limited"
	// FailureAuthFailed indicates the API credential was missing, invalid,
	// or lacked permission.
	FailureAuthFailed FailureCategory = "auth_failed"
	// FailureUnknown is the fallback for any failure that could not be
	// confidently classified.
	FailureUnknown FailureCategory = "unknown"
)

// Answer is the result of one synthesize call.
type Answer struct {
	// Text is the model's answer. Empty when Failure is set.
	Text string

	// CitedPages is the sorted set of page numbers of the passages that
	// formed the grounding context. It is derived from the passages
	// supplied to the generation step, never from the model's prose, so
	// every cited page is guaranteed to be real grounding material.
	CitedPages []int

	// Failure is non-nil when the generation call failed. The answer then
	// carries no text and no citations, but is still shaped so a chat
	// transcript can render the turn.
	Failure *GenerationError
}

// Embedder converts text into dense, unit-length vector embeddings.
// Implementations must be deterministic for identical input and safe for
// concurrent read-only use across sessions.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice and every vector
	// is L2-normalized.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text through a batch Embedder.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errEmbedderCount(len(vecs))
	}
	return vecs[0], nil
}

// CitedPages returns the sorted, deduplicated page numbers of the given
// passages. Passages without page metadata (Page == 0) are skipped, so
// citations are omitted rather than fabricated.
func CitedPages(passages []Passage) []int {
	seen := make(map[int]struct{}, len(passages))
	var pages []int
	for _, p := range passages {
		if p.Page <= 0 {
			continue
		}
		if _, ok := seen[p.Page]; ok {
			continue
		}
		seen[p.Page] = struct{}{}
		pages = append(pages, p.Page)
	}
	sort.Ints(pages)
	return pages
}
