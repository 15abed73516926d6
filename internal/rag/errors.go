package rag

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when a query arrives while the pipeline is not in
// the ready state: before any ingestion, during ingestion, or after a
// failed ingestion. It carries no side effects.
var ErrNotReady = errors.New("rag: no document indexed")

// Ingestion stage names carried by IngestionError.
const (
	// StageChunk is the document chunking stage.
	StageChunk = "chunk"
	// StageEmbed is the passage embedding stage.
	StageEmbed = "embed"
	// StageIndex is the vector index build stage.
	StageIndex = "index"
)

// IngestionError reports a failed ingestion. It names the stage that failed
// so callers can surface it; the pipeline returns to the empty state and no
// partially built index remains reachable.
type IngestionError struct {
	// Stage is one of StageChunk, StageEmbed, StageIndex.
	Stage string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *IngestionError) Error() string {
	return fmt.Sprintf("rag: ingestion failed at %s stage: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *IngestionError) Unwrap() error { return e.Err }

// ConfigError reports an invalid parameter, naming the offending field.
// It is returned before any work starts and is never partially applied.
type ConfigError struct {
	// Field is the configuration field name as exposed to the caller
	// (e.g. "chunk_overlap", "fetch_k").
	Field string
	// Reason describes why the value was rejected.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("rag: invalid %s: %s", e.Field, e.Reason)
}

// GenerationError reports a failed call to the external generation model.
// It carries the raw failure message plus a best-effort category so the
// caller can render a meaningful chat turn without masking the error.
type GenerationError struct {
	// Category is the best-effort classification of the failure.
	Category FailureCategory
	// Message is the raw failure reason from the generation call.
	Message string
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("rag: generation failed (%s): %s", e.Category, e.Message)
}

// errEmbedderCount reports an embedder that returned the wrong number of
// vectors for a single-text embed.
func errEmbedderCount(got int) error {
	return fmt.Errorf("rag: embedder returned %d vectors for 1 text", got)
}
