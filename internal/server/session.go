package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultSessionTTL is how long an idle session survives before eviction
// reclaims its in-memory index.
const defaultSessionTTL = time.Hour

// session is one chat session: at most one indexed document plus the
// pipeline that serves it. The zero pipeline (nil) means no document has
// been uploaded yet.
type session struct {
	// id is the session identifier handed to the client.
	id string

	// mu guards pipe and document. Handler goroutines for the same session
	// may race upload against chat.
	mu sync.Mutex
	// pipe is the document pipeline. Nil until the first upload succeeds
	// or fails (a failed upload leaves a pipeline in the empty state).
	pipe DocPipeline
	// document is the name of the uploaded document, for status responses.
	document string

	// lastSeen is updated on every request touching this session.
	lastSeen time.Time
}

// touch marks the session as recently used.
func (s *session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// sessionRegistry is the in-memory session table with TTL-based eviction,
// mirroring how the rate limiter bounds its per-IP state.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	log      *slog.Logger
	// onCount is called with the session count after every change, for the
	// active-sessions gauge.
	onCount func(n int)
}

// newSessionRegistry constructs a registry and starts the background
// eviction goroutine. The goroutine exits when the returned stop function
// is called.
func newSessionRegistry(ttl time.Duration, log *slog.Logger, onCount func(int)) (*sessionRegistry, func()) {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if onCount == nil {
		onCount = func(int) {}
	}
	r := &sessionRegistry{
		sessions: make(map[string]*session),
		ttl:      ttl,
		log:      log,
		onCount:  onCount,
	}

	stopCh := make(chan struct{})
	go r.evictLoop(stopCh)

	return r, func() { close(stopCh) }
}

// create registers a new session and returns it.
func (r *sessionRegistry) create() *session {
	s := &session{
		id:       uuid.NewString(),
		lastSeen: time.Now(),
	}
	r.mu.Lock()
	r.sessions[s.id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	r.onCount(n)
	return s
}

// get returns the session with the given ID, or nil if it does not exist.
// A found session has its lastSeen refreshed.
func (r *sessionRegistry) get(id string) *session {
	r.mu.Lock()
	s := r.sessions[id]
	r.mu.Unlock()
	if s != nil {
		s.touch()
	}
	return s
}

// remove deletes the session with the given ID, reporting whether it existed.
func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	r.onCount(n)
	return ok
}

// evictLoop removes sessions idle for longer than the TTL. It runs in a
// background goroutine and exits when stopCh is closed.
func (r *sessionRegistry) evictLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.evict()
		}
	}
}

// evict removes sessions whose lastSeen is older than the TTL.
func (r *sessionRegistry) evict() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	var evicted []string
	for id, s := range r.sessions {
		s.mu.Lock()
		stale := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	r.onCount(n)
	for _, id := range evicted {
		r.log.Info("session evicted", slog.String("session_id", id))
	}
}
