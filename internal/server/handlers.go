package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/melakudessie/WHO-AMR-chat/internal/extract"
	"github.com/melakudessie/WHO-AMR-chat/internal/logging"
	"github.com/melakudessie/WHO-AMR-chat/internal/pipeline"
	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
	"github.com/melakudessie/WHO-AMR-chat/internal/store"
)

// handleSessionCreate handles POST /api/session. A new session starts empty;
// the client uploads a document next.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.create()
	logging.FromContext(r.Context()).Info("session created", slog.String("session_id", sess.id))
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.id, State: pipeline.StateEmpty.String()})
}

// handleSessionStatus handles GET /api/session/{id}.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	resp := sessionResponse{ID: sess.id, Document: sess.document}
	if sess.pipe != nil {
		resp.State = sess.pipe.State().String()
	} else {
		resp.State = pipeline.StateEmpty.String()
	}
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// handleSessionDelete handles DELETE /api/session/{id}. The session's index
// is dropped and its transcript cleared.
func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.remove(id) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	if err := s.store.Clear(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Error("transcript clear failed", slog.Any("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDocument handles POST /api/session/{id}/document. The document is
// either a multipart PDF upload (field "file") or a JSON body of
// pre-extracted pages. Uploading replaces any previous document and clears
// the session transcript.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	pages, docName, opts, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	pipe, err := s.factory(opts)
	if err != nil {
		var cfgErr *rag.ConfigError
		if errors.As(err, &cfgErr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: cfgErr.Error()})
			return
		}
		log.Error("pipeline construction failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not prepare document pipeline"})
		return
	}

	start := time.Now()
	stats, err := pipe.Ingest(r.Context(), pages)
	outcome := "ok"
	if err != nil {
		var ingErr *rag.IngestionError
		if errors.As(err, &ingErr) {
			outcome = ingErr.Stage
		} else {
			outcome = "error"
		}
	}
	s.metrics.ingestTotal.WithLabelValues(outcome).Inc()
	s.metrics.ingestDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Warn("document ingest failed",
			slog.String("session_id", sess.id),
			slog.String("outcome", outcome),
			slog.Any("error", err),
		)
		status := http.StatusBadGateway
		if outcome == rag.StageChunk {
			// The document itself is unusable, not a backend.
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	sess.mu.Lock()
	sess.pipe = pipe
	sess.document = docName
	sess.mu.Unlock()

	// A fresh document invalidates the old conversation.
	if err := s.store.Clear(r.Context(), sess.id); err != nil {
		log.Error("transcript clear failed", slog.Any("error", err))
	}

	log.Info("document ingested",
		slog.String("session_id", sess.id),
		slog.String("document", docName),
		slog.Int("pages", stats.Pages),
		slog.Int("passages", stats.Passages),
	)
	writeJSON(w, http.StatusOK, ingestResponse{
		State:        pipeline.StateReady.String(),
		Pages:        stats.Pages,
		Passages:     stats.Passages,
		SkippedPages: stats.SkippedPages,
	})
}

// readDocument extracts the pages, document name, and tuning options from an
// upload request. On failure it writes the error response and returns
// ok=false.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (pages []rag.Page, docName string, opts pipeline.Options, ok bool) {
	if s.cfg.DefaultOptions != nil {
		opts = *s.cfg.DefaultOptions
	} else {
		opts = pipeline.DefaultOptions()
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing or invalid Content-Type"})
		return nil, "", opts, false
	}

	switch {
	case mediaType == "multipart/form-data":
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field \"file\" is required"})
			return nil, "", opts, false
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read upload"})
			return nil, "", opts, false
		}
		extracted, skipped, err := extract.PDFPages(content)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unreadable PDF: %v", err)})
			return nil, "", opts, false
		}
		if len(skipped) > 0 {
			logging.FromContext(r.Context()).Warn("pdf pages skipped during extraction",
				slog.Any("pages", skipped),
			)
		}
		if err := applyFormOptions(r, &opts); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return nil, "", opts, false
		}
		return extracted, header.Filename, opts, true

	case mediaType == "application/json":
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return nil, "", opts, false
		}
		if len(req.Pages) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "pages is required"})
			return nil, "", opts, false
		}
		for _, p := range req.Pages {
			pages = append(pages, rag.Page{Number: p.Number, Text: p.Text})
		}
		req.Options.apply(&opts)
		return pages, "inline", opts, true

	default:
		writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{Error: "use multipart/form-data or application/json"})
		return nil, "", opts, false
	}
}

// applyFormOptions overlays tuning options sent as multipart form values.
func applyFormOptions(r *http.Request, opts *pipeline.Options) error {
	intFields := map[string]*int{
		"chunk_size":    &opts.ChunkSize,
		"chunk_overlap": &opts.ChunkOverlap,
		"k":             &opts.K,
		"fetch_k":       &opts.FetchK,
		"max_tokens":    &opts.MaxTokens,
	}
	for name, dst := range intFields {
		v := r.FormValue(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &rag.ConfigError{Field: name, Reason: "must be an integer"}
		}
		*dst = n
	}
	if v := r.FormValue("diversity_weight"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &rag.ConfigError{Field: "diversity_weight", Reason: "must be a number"}
		}
		opts.DiversityWeight = f
	}
	if v := r.FormValue("temperature"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return &rag.ConfigError{Field: "temperature", Reason: "must be a number"}
		}
		opts.Temperature = float32(f)
	}
	return nil
}

// apply overlays the non-nil request fields onto opts.
func (o *optionsJSON) apply(opts *pipeline.Options) {
	if o == nil {
		return
	}
	if o.ChunkSize != nil {
		opts.ChunkSize = *o.ChunkSize
	}
	if o.ChunkOverlap != nil {
		opts.ChunkOverlap = *o.ChunkOverlap
	}
	if o.K != nil {
		opts.K = *o.K
	}
	if o.FetchK != nil {
		opts.FetchK = *o.FetchK
	}
	if o.DiversityWeight != nil {
		opts.DiversityWeight = *o.DiversityWeight
	}
	if o.Temperature != nil {
		opts.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		opts.MaxTokens = *o.MaxTokens
	}
}

// handleChat handles POST /api/session/{id}/chat. Both the question and the
// answer (or its failure) are appended to the session transcript.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	sess.mu.Lock()
	pipe := sess.pipe
	sess.mu.Unlock()

	start := time.Now()
	outcome := "ok"
	defer func() {
		s.metrics.queryTotal.WithLabelValues(outcome).Inc()
		s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	if pipe == nil {
		outcome = "not_ready"
		writeJSON(w, http.StatusConflict, errorResponse{Error: rag.ErrNotReady.Error()})
		return
	}

	// The question belongs in the transcript even if answering it fails.
	s.appendTurn(r, sess.id, store.Turn{Role: store.RoleUser, Content: req.Message})

	answer, err := pipe.Query(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, rag.ErrNotReady) {
			outcome = "not_ready"
			writeJSON(w, http.StatusConflict, errorResponse{Error: rag.ErrNotReady.Error()})
			return
		}
		outcome = "retrieval_error"
		log.Error("query failed", slog.String("session_id", sess.id), slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "query failed"})
		return
	}

	resp := chatResponse{Answer: answer.Text, CitedPages: answer.CitedPages}
	if resp.CitedPages == nil {
		resp.CitedPages = []int{}
	}
	if answer.Failure != nil {
		outcome = string(answer.Failure.Category)
		resp.Failure = &failureJSON{
			Category: string(answer.Failure.Category),
			Message:  answer.Failure.Message,
		}
		s.appendTurn(r, sess.id, store.Turn{
			Role:    store.RoleAssistant,
			Content: answer.Failure.Error(),
		})
	} else {
		s.appendTurn(r, sess.id, store.Turn{
			Role:       store.RoleAssistant,
			Content:    answer.Text,
			CitedPages: answer.CitedPages,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHistory handles GET /api/session/{id}/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	turns, err := s.store.History(r.Context(), sess.id)
	if err != nil {
		logging.FromContext(r.Context()).Error("transcript read failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not read history"})
		return
	}
	resp := historyResponse{Turns: make([]turnJSON, 0, len(turns))}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, turnJSON{
			Role:       string(t.Role),
			Content:    t.Content,
			CitedPages: t.CitedPages,
			CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// cannedPrompts are starter questions shown to users before they type their
// own. Generic enough to apply to any report-style document.
var cannedPrompts = []string{
	"Provide a comprehensive summary of this document including its main purpose, key findings, and conclusions.",
	"What are the most important key points and takeaways from this document?",
	"List all important statistics, numbers, and quantitative data mentioned in the document.",
	"What are the main recommendations or action items suggested in this document?",
	"Which organizations are mentioned?",
	"What methodologies were used?",
}

// handlePrompts handles GET /api/prompts.
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"prompts": cannedPrompts})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session resolves the {id} path value to a live session, writing a 404 and
// returning nil when it does not exist.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	sess := s.sessions.get(r.PathValue("id"))
	if sess == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	}
	return sess
}

// appendTurn persists a transcript turn, logging rather than failing the
// request when the store is unavailable.
func (s *Server) appendTurn(r *http.Request, sessionID string, turn store.Turn) {
	if err := s.store.Append(r.Context(), sessionID, turn); err != nil {
		logging.FromContext(r.Context()).Error("transcript append failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
