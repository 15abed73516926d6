package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/melakudessie/WHO-AMR-chat/internal/pipeline"
	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
	"github.com/melakudessie/WHO-AMR-chat/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request. Uploads
	// of large PDFs need more headroom than a typical JSON API.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Ingest and chat both wait on remote model APIs.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// SessionTTL is how long an idle session is kept before eviction.
	// Defaults to 1 hour.
	SessionTTL time.Duration
	// MaxUploadBytes caps the size of an uploaded document. Defaults to 32 MiB.
	MaxUploadBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 5 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 10 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Store persists chat transcripts. If nil, transcripts are discarded.
	Store store.TranscriptStore
	// MetricsRegistry receives all server metric registrations. If nil, a
	// private registry is created. Tests inject a fresh one to stay hermetic.
	MetricsRegistry *prometheus.Registry
	// DefaultOptions is the base pipeline tuning applied to uploads that do
	// not override it. If nil, [pipeline.DefaultOptions] is used.
	DefaultOptions *pipeline.Options
}

// DocPipeline is the per-session document orchestrator the handlers drive.
// *pipeline.Pipeline satisfies it; tests inject a fake.
type DocPipeline interface {
	// State reports the document lifecycle phase.
	State() pipeline.State
	// Ingest indexes the given pages, replacing any previous document.
	Ingest(ctx context.Context, pages []rag.Page) (pipeline.Stats, error)
	// Query answers a question against the indexed document.
	Query(ctx context.Context, question string) (rag.Answer, error)
}

// PipelineFactory builds a fresh DocPipeline for a session's document with
// the given tuning. Called on every document upload so each upload can carry
// its own chunking and retrieval settings.
type PipelineFactory func(opts pipeline.Options) (DocPipeline, error)

// Server is the HTTP server exposing the document question-answering API.
type Server struct {
	// factory builds a pipeline per uploaded document.
	factory PipelineFactory
	// sessions is the in-memory session registry.
	sessions *sessionRegistry
	// store persists chat transcripts.
	store store.TranscriptStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// sessionResponse is the JSON representation of a session.
type sessionResponse struct {
	// ID is the session identifier.
	ID string `json:"id"`
	// State is the document lifecycle phase: empty, ingesting, or ready.
	State string `json:"state"`
	// Document is the name of the currently indexed document, if any.
	Document string `json:"document,omitempty"`
}

// ingestRequest is the JSON body for POST /api/session/{id}/document when
// the document is supplied as pre-extracted pages rather than a PDF upload.
type ingestRequest struct {
	// Pages is the per-page text of the document.
	Pages []pageJSON `json:"pages"`
	// Options tunes chunking, retrieval, and generation for this document.
	Options *optionsJSON `json:"options,omitempty"`
}

// pageJSON is one page of a JSON-supplied document.
type pageJSON struct {
	// Number is the 1-based page number. Zero means no pagination.
	Number int `json:"number"`
	// Text is the page's plain text.
	Text string `json:"text"`
}

// optionsJSON carries the optional per-document tuning. Absent fields keep
// their defaults.
type optionsJSON struct {
	ChunkSize       *int     `json:"chunk_size,omitempty"`
	ChunkOverlap    *int     `json:"chunk_overlap,omitempty"`
	K               *int     `json:"k,omitempty"`
	FetchK          *int     `json:"fetch_k,omitempty"`
	DiversityWeight *float64 `json:"diversity_weight,omitempty"`
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxTokens       *int     `json:"max_tokens,omitempty"`
}

// ingestResponse is the JSON response for a completed document upload.
type ingestResponse struct {
	// State is the session state after ingest ("ready").
	State string `json:"state"`
	// Pages is the number of pages submitted.
	Pages int `json:"pages"`
	// Passages is the number of indexed passages.
	Passages int `json:"passages"`
	// SkippedPages is the number of pages dropped during extraction or
	// chunking.
	SkippedPages int `json:"skipped_pages"`
}

// chatRequest is the JSON body for POST /api/session/{id}/chat.
type chatRequest struct {
	// Message is the user's question about the document.
	Message string `json:"message"`
}

// chatResponse is the JSON response for POST /api/session/{id}/chat.
type chatResponse struct {
	// Answer is the generated answer text. Empty when Failure is set.
	Answer string `json:"answer"`
	// CitedPages are the document pages the answer draws on.
	CitedPages []int `json:"cited_pages"`
	// Failure describes a generation backend failure, if one occurred.
	Failure *failureJSON `json:"failure,omitempty"`
}

// failureJSON is the wire form of a classified generation failure.
type failureJSON struct {
	// Category is rate_limited, auth_failed, or unknown.
	Category string `json:"category"`
	// Message is the backend's error text.
	Message string `json:"message"`
}

// historyResponse is the JSON response for GET /api/session/{id}/history.
type historyResponse struct {
	// Turns is the session transcript, oldest-first.
	Turns []turnJSON `json:"turns"`
}

// turnJSON is one transcript entry on the wire.
type turnJSON struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	CitedPages []int  `json:"cited_pages,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	Error string `json:"error"`
}
