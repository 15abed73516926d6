package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/melakudessie/WHO-AMR-chat/internal/embedder"
	"github.com/melakudessie/WHO-AMR-chat/internal/pipeline"
	"github.com/melakudessie/WHO-AMR-chat/internal/provider"
	"github.com/melakudessie/WHO-AMR-chat/internal/server"
	"github.com/melakudessie/WHO-AMR-chat/internal/store"
)

// optionsFromEnv returns the default pipeline tuning with any environment
// overrides applied. Per-document options supplied on upload still take
// precedence over these.
func optionsFromEnv() pipeline.Options {
	opts := pipeline.DefaultOptions()
	applyEnvInt("CHUNK_SIZE", &opts.ChunkSize)
	applyEnvInt("CHUNK_OVERLAP", &opts.ChunkOverlap)
	applyEnvInt("RETRIEVAL_K", &opts.K)
	applyEnvInt("RETRIEVAL_FETCH_K", &opts.FetchK)
	applyEnvInt("MODEL_MAX_TOKENS", &opts.MaxTokens)
	if v := os.Getenv("RETRIEVAL_DIVERSITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.DiversityWeight = f
		}
	}
	if v := os.Getenv("MODEL_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			opts.Temperature = float32(f)
		}
	}
	return opts
}

// applyEnvInt replaces *dst with the integer value of the named env var,
// if set and parseable.
func applyEnvInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// openHistoryStore resolves the transcript store from WHOCHAT_HISTORY_DB.
// The default path is ~/.whochat/history.db; "disabled" turns persistence
// off. Failures degrade to the no-op store with a warning rather than
// aborting startup.
func openHistoryStore(log *slog.Logger) (store.TranscriptStore, func()) {
	dbPath := os.Getenv("WHOCHAT_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via WHOCHAT_HISTORY_DB=disabled")
		return store.Nop(), func() {}
	}
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return store.Nop(), func() {}
		}
		dbPath = p
	}

	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return store.Nop(), func() {}
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// buildPingers wires the embedding and generation backends into readiness
// probes. The embedder is constructed lazily, so its probe builds it on
// first use.
func buildPingers(lazyEmb *embedder.Lazy, gen provider.Generator) []server.Pinger {
	pingers := []server.Pinger{
		server.PingerFunc("embedder", func(ctx context.Context) error {
			e, err := lazyEmb.Get()
			if err != nil {
				return err
			}
			if p, ok := e.(interface{ Ping(context.Context) error }); ok {
				return p.Ping(ctx)
			}
			return nil
		}),
	}
	if p, ok := gen.(interface{ Ping(context.Context) error }); ok {
		pingers = append(pingers, server.NamedPinger("generator", p))
	}
	return pingers
}

// pipelineFactory returns a server.PipelineFactory that shares one embedder
// and one generator across all sessions.
func pipelineFactory(lazyEmb *embedder.Lazy, gen provider.Generator) server.PipelineFactory {
	return func(opts pipeline.Options) (server.DocPipeline, error) {
		e, err := lazyEmb.Get()
		if err != nil {
			return nil, fmt.Errorf("embedder init: %w", err)
		}
		return pipeline.New(e, gen, opts)
	}
}
