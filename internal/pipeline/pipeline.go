// Package pipeline orchestrates the document lifecycle: chunking and
// indexing on ingest, retrieval and synthesis on query. A Pipeline owns
// exactly one document at a time; re-ingesting replaces the index wholesale.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/melakudessie/WHO-AMR-chat/internal/chunker"
	"github.com/melakudessie/WHO-AMR-chat/internal/logging"
	"github.com/melakudessie/WHO-AMR-chat/internal/provider"
	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
	"github.com/melakudessie/WHO-AMR-chat/internal/synthesis"
)

// State is the document lifecycle phase of a Pipeline.
type State int

const (
	// StateEmpty means no document is indexed. Queries are rejected.
	StateEmpty State = iota
	// StateIngesting means an ingest is in flight. Queries are rejected.
	StateIngesting
	// StateReady means a document is indexed and queries are served.
	StateReady
)

// String returns the lowercase wire name of the state.
func (s State) String() string {
	switch s {
	case StateIngesting:
		return "ingesting"
	case StateReady:
		return "ready"
	default:
		return "empty"
	}
}

// Stats summarizes a completed ingest.
type Stats struct {
	// Pages is the number of pages submitted.
	Pages int
	// Passages is the number of indexed passages.
	Passages int
	// SkippedPages is the number of pages dropped for invalid encoding.
	SkippedPages int
}

// Options fixes the chunking, retrieval, and generation tuning for the
// lifetime of a Pipeline.
type Options struct {
	// ChunkSize is the maximum passage length in characters (200–2000).
	ChunkSize int
	// ChunkOverlap is the character overlap between adjacent passages
	// (0–500, strictly less than ChunkSize).
	ChunkOverlap int
	// K is the number of passages retrieved per query.
	K int
	// FetchK is the MMR candidate pool size. Must be >= K.
	FetchK int
	// DiversityWeight is the MMR lambda in [0.0, 1.0].
	DiversityWeight float64
	// Temperature controls generation randomness (0.0–1.0).
	Temperature float32
	// MaxTokens caps the generated answer length.
	MaxTokens int
}

// DefaultOptions returns the standard tuning for medical report analysis.
func DefaultOptions() Options {
	return Options{
		ChunkSize:       1000,
		ChunkOverlap:    200,
		K:               5,
		FetchK:          20,
		DiversityWeight: 0.5,
		Temperature:     0.0,
		MaxTokens:       1024,
	}
}

// Validate rejects out-of-range options, naming the offending field.
func (o Options) Validate() error {
	if o.ChunkSize < 200 || o.ChunkSize > 2000 {
		return &rag.ConfigError{Field: "chunk_size", Reason: fmt.Sprintf("must be in [200, 2000], got %d", o.ChunkSize)}
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap > 500 {
		return &rag.ConfigError{Field: "chunk_overlap", Reason: fmt.Sprintf("must be in [0, 500], got %d", o.ChunkOverlap)}
	}
	if o.ChunkOverlap >= o.ChunkSize {
		return &rag.ConfigError{Field: "chunk_overlap", Reason: fmt.Sprintf("must be less than chunk_size (%d), got %d", o.ChunkSize, o.ChunkOverlap)}
	}
	if o.Temperature < 0 || o.Temperature > 1 {
		return &rag.ConfigError{Field: "temperature", Reason: fmt.Sprintf("must be in [0.0, 1.0], got %g", o.Temperature)}
	}
	if o.MaxTokens < 1 {
		return &rag.ConfigError{Field: "max_tokens", Reason: fmt.Sprintf("must be >= 1, got %d", o.MaxTokens)}
	}
	return o.retrievalParams().Validate()
}

// retrievalParams projects the options onto the retrieval policy.
func (o Options) retrievalParams() rag.Params {
	return rag.Params{K: o.K, FetchK: o.FetchK, DiversityWeight: o.DiversityWeight}
}

// Pipeline is the per-session orchestrator. All methods are safe for
// concurrent use.
type Pipeline struct {
	embedder rag.Embedder
	synth    *synthesis.Synthesizer
	splitter *chunker.Splitter
	opts     Options

	mu        sync.Mutex
	state     State
	retriever *rag.Retriever
}

// New constructs an empty Pipeline. The options are validated once here so
// Ingest and Query never fail on configuration.
func New(embedder rag.Embedder, gen provider.Generator, opts Options) (*Pipeline, error) {
	if embedder == nil {
		return nil, errors.New("pipeline: embedder must not be nil")
	}
	if gen == nil {
		return nil, errors.New("pipeline: generator must not be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		embedder: embedder,
		synth:    synthesis.New(gen, opts.Temperature, opts.MaxTokens),
		splitter: chunker.New(opts.ChunkSize, opts.ChunkOverlap),
		opts:     opts,
	}, nil
}

// State reports the current lifecycle phase.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Ingest chunks, embeds, and indexes the given pages, replacing any
// previously indexed document. On failure the pipeline returns to the
// empty state and the previous index is discarded; the returned error is
// an *rag.IngestionError identifying the failed stage.
func (p *Pipeline) Ingest(ctx context.Context, pages []rag.Page) (Stats, error) {
	p.mu.Lock()
	if p.state == StateIngesting {
		p.mu.Unlock()
		return Stats{}, errors.New("pipeline: ingestion already in progress")
	}
	p.state = StateIngesting
	p.retriever = nil
	p.mu.Unlock()

	stats, retriever, err := p.build(ctx, pages)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateEmpty
		return Stats{}, err
	}
	p.retriever = retriever
	p.state = StateReady
	return stats, nil
}

// build runs the three ingest stages without touching pipeline state.
func (p *Pipeline) build(ctx context.Context, pages []rag.Page) (Stats, *rag.Retriever, error) {
	log := logging.FromContext(ctx)

	passages, skipped := p.splitter.Split(pages)
	if len(skipped) > 0 {
		log.Warn("skipped pages with invalid encoding", "pages", skipped)
	}
	if len(passages) == 0 {
		return Stats{}, nil, &rag.IngestionError{
			Stage: rag.StageChunk,
			Err:   errors.New("document produced no passages"),
		}
	}

	texts := make([]string, len(passages))
	for i, psg := range passages {
		texts[i] = psg.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return Stats{}, nil, &rag.IngestionError{Stage: rag.StageEmbed, Err: err}
	}

	index, err := rag.Build(passages, vectors)
	if err != nil {
		return Stats{}, nil, &rag.IngestionError{Stage: rag.StageIndex, Err: err}
	}
	retriever, err := rag.NewRetriever(p.embedder, index, p.opts.retrievalParams())
	if err != nil {
		return Stats{}, nil, &rag.IngestionError{Stage: rag.StageIndex, Err: err}
	}

	stats := Stats{Pages: len(pages), Passages: len(passages), SkippedPages: len(skipped)}
	log.Info("document indexed",
		"pages", stats.Pages,
		"passages", stats.Passages,
		"skipped_pages", stats.SkippedPages,
	)
	return stats, retriever, nil
}

// Query answers a question against the indexed document. A pipeline that is
// not ready returns rag.ErrNotReady with no side effects. A generation
// backend failure is reported inside the Answer, not as an error, and
// leaves the pipeline ready for the next query.
func (p *Pipeline) Query(ctx context.Context, question string) (rag.Answer, error) {
	p.mu.Lock()
	if p.state != StateReady || p.retriever == nil {
		p.mu.Unlock()
		return rag.Answer{}, rag.ErrNotReady
	}
	retriever := p.retriever
	p.mu.Unlock()

	passages, err := retriever.Retrieve(ctx, question)
	if err != nil {
		return rag.Answer{}, fmt.Errorf("pipeline: retrieval failed: %w", err)
	}

	answer := p.synth.Synthesize(ctx, question, passages)
	if answer.Failure != nil {
		logging.FromContext(ctx).Warn("generation failed",
			"category", string(answer.Failure.Category),
		)
	}
	return answer, nil
}
