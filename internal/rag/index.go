package rag

import (
	"fmt"
	"sort"
)

// Index is an immutable-after-build, in-memory flat vector index over the
// passages of a single document. It is built once per document and rebuilt
// wholesale on re-ingestion — never patched incrementally. Search is
// brute-force dot product, which is exact and fast for single-document
// passage counts; the vectors are unit-normalized at embedding time so the
// dot product is cosine similarity.
//
// An Index is read-only after Build and safe for concurrent searches.
type Index struct {
	passages []Passage
	vectors  [][]float32
	dim      int
}

// Build constructs an Index from passages and their parallel embedding
// vectors. All vectors must share one dimensionality. An empty input yields
// a valid, empty index (searches return no results).
func Build(passages []Passage, vectors [][]float32) (*Index, error) {
	if len(passages) != len(vectors) {
		return nil, fmt.Errorf("rag: index build: %d passages but %d vectors", len(passages), len(vectors))
	}

	dim := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("rag: index build: empty vector for passage %d", passages[i].Seq)
		}
		if dim == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return nil, fmt.Errorf("rag: index build: vector for passage %d has dimension %d, want %d", passages[i].Seq, len(v), dim)
		}
	}

	// Copy both slices so later caller mutations cannot reach the index.
	ix := &Index{
		passages: append([]Passage(nil), passages...),
		vectors:  make([][]float32, len(vectors)),
		dim:      dim,
	}
	for i, v := range vectors {
		ix.vectors[i] = append([]float32(nil), v...)
	}
	return ix, nil
}

// Len returns the number of indexed passages.
func (ix *Index) Len() int { return len(ix.passages) }

// Search returns up to k passages for the query vector using maximal
// marginal relevance: the fetchK nearest candidates by similarity are
// retrieved first, then k of them are greedily selected to maximize
//
//	lambda*sim(query, c) - (1-lambda)*max sim(c, selected)
//
// with ties broken by original similarity rank. lambda = 1.0 is exactly
// plain top-k similarity ordering, not an approximation. The result never
// contains duplicate passages and has length min(k, fetchK, index size).
func (ix *Index) Search(query []float32, fetchK, k int, lambda float64) ([]Passage, error) {
	if k <= 0 {
		return nil, &ConfigError{Field: "k", Reason: fmt.Sprintf("must be >= 1, got %d", k)}
	}
	if fetchK < k {
		return nil, &ConfigError{Field: "fetch_k", Reason: fmt.Sprintf("must be >= k (%d), got %d", k, fetchK)}
	}
	if lambda < 0 || lambda > 1 {
		return nil, &ConfigError{Field: "diversity_weight", Reason: fmt.Sprintf("must be in [0.0, 1.0], got %g", lambda)}
	}
	if ix.dim != 0 && len(query) != ix.dim {
		return nil, fmt.Errorf("rag: search: query vector has dimension %d, index has %d", len(query), ix.dim)
	}
	if len(ix.passages) == 0 {
		return nil, nil
	}

	// Rank all passages by similarity, stable on original order for ties,
	// and keep the fetchK best as the candidate pool.
	scores := make([]float64, len(ix.vectors))
	for i, v := range ix.vectors {
		scores[i] = dot(query, v)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if fetchK < len(order) {
		order = order[:fetchK]
	}
	if k > len(order) {
		k = len(order)
	}

	// Plain similarity ordering: the greedy loop below would produce the
	// same result for lambda=1, but this keeps the degenerate case exact
	// and obviously reproducible.
	if lambda == 1.0 {
		out := make([]Passage, k)
		for i := 0; i < k; i++ {
			out[i] = ix.passages[order[i]]
		}
		return out, nil
	}

	selected := make([]int, 0, k)
	remaining := append([]int(nil), order...)

	for len(selected) < k && len(remaining) > 0 {
		bestPos := 0
		bestScore := mmrScore(ix, scores, remaining[0], selected, lambda)
		for pos := 1; pos < len(remaining); pos++ {
			// Strict > keeps the earlier (better-ranked) candidate on ties.
			if s := mmrScore(ix, scores, remaining[pos], selected, lambda); s > bestScore {
				bestScore = s
				bestPos = pos
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	out := make([]Passage, len(selected))
	for i, idx := range selected {
		out[i] = ix.passages[idx]
	}
	return out, nil
}

// mmrScore computes the marginal relevance of candidate idx against the
// already selected set.
func mmrScore(ix *Index, scores []float64, idx int, selected []int, lambda float64) float64 {
	maxSim := 0.0
	for _, s := range selected {
		if sim := dot(ix.vectors[idx], ix.vectors[s]); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*scores[idx] - (1-lambda)*maxSim
}

// dot returns the dot product of a and b over their shared prefix.
// Accumulation in float64 keeps orderings stable for near-tied scores.
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
