// Package server implements the HTTP server that exposes document
// question-answering over a REST API: upload a document into a session,
// then chat against it with page-cited answers.
// The server is started by the `whochat serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/melakudessie/WHO-AMR-chat/internal/logging"
	"github.com/melakudessie/WHO-AMR-chat/internal/store"
)

// defaultMaxUploadBytes caps document uploads at 32 MiB.
const defaultMaxUploadBytes = 32 << 20

// New constructs a Server from the provided pipeline factory and config.
func New(factory PipelineFactory, cfg *Config) (*Server, error) {
	if factory == nil {
		return nil, fmt.Errorf("server: pipeline factory must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		// Uploads of large PDFs need more headroom than a typical JSON API.
		cfg.ReadTimeout = 2 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		// Ingest and chat both wait on remote model APIs.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	reg := cfg.MetricsRegistry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		factory: factory,
		store:   cfg.Store,
		cfg:     cfg,
		log:     log,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(reg),
	}
	if s.store == nil {
		s.store = store.Nop()
	}

	sessions, stopSessions := newSessionRegistry(cfg.SessionTTL, log, func(n int) {
		s.metrics.sessionsActive.Set(float64(n))
	})
	s.sessions = sessions

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = func() {
		stopRL()
		stopSessions()
	}

	if cfg.APIKey == "" {
		log.Warn("server: WHOCHAT_API_KEY not set; API authentication is disabled")
	}

	// Protected routes require the API key and count against the per-IP
	// rate limit. Health, readiness, and metrics stay open for probes.
	protect := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, rl.middleware(authMiddleware(cfg.APIKey, h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/session", protect("session_create", s.handleSessionCreate))
	mux.Handle("GET /api/session/{id}", protect("session_status", s.handleSessionStatus))
	mux.Handle("DELETE /api/session/{id}", protect("session_delete", s.handleSessionDelete))
	mux.Handle("POST /api/session/{id}/document", protect("document", s.handleDocument))
	mux.Handle("POST /api/session/{id}/chat", protect("chat", s.handleChat))
	mux.Handle("GET /api/session/{id}/history", protect("history", s.handleHistory))
	mux.Handle("GET /api/prompts", protect("prompts", s.handlePrompts))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("whochat server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// instrument wraps a handler with the shared HTTP request counter and
// latency histogram, labelled by the logical handler name.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(elapsed.Seconds())
	})
}
