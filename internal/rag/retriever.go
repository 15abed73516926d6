package rag

import (
	"context"
	"fmt"
)

// Params fixes the retrieval selection policy for the lifetime of a session.
type Params struct {
	// K is the number of passages returned per query.
	K int
	// FetchK is the candidate pool size for MMR selection. Must be >= K.
	FetchK int
	// DiversityWeight is the MMR lambda in [0.0, 1.0]. 1.0 is plain
	// similarity ranking; lower values trade relevance for coverage across
	// distinct regions of the document.
	DiversityWeight float64
}

// Validate rejects out-of-range retrieval parameters, naming the offending
// field.
func (p Params) Validate() error {
	if p.K < 1 {
		return &ConfigError{Field: "k", Reason: fmt.Sprintf("must be >= 1, got %d", p.K)}
	}
	if p.FetchK < p.K {
		return &ConfigError{Field: "fetch_k", Reason: fmt.Sprintf("must be >= k (%d), got %d", p.K, p.FetchK)}
	}
	if p.DiversityWeight < 0 || p.DiversityWeight > 1 {
		return &ConfigError{Field: "diversity_weight", Reason: fmt.Sprintf("must be in [0.0, 1.0], got %g", p.DiversityWeight)}
	}
	return nil
}

// Retriever wraps an Index with a fixed selection policy. It embeds the
// query text and delegates to the index. Query results are not cached —
// every call is independent.
type Retriever struct {
	embedder Embedder
	index    *Index
	params   Params
}

// NewRetriever constructs a Retriever over the given index. The params are
// validated once here so Retrieve never fails on configuration.
func NewRetriever(embedder Embedder, index *Index, params Params) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Retriever{embedder: embedder, index: index, params: params}, nil
}

// Retrieve embeds the query and returns the selected passages in retrieval
// order.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	vec, err := EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	passages, err := r.index.Search(vec, r.params.FetchK, r.params.K, r.params.DiversityWeight)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	return passages, nil
}
