package embedder

import (
	"sync"

	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
)

// Lazy defers embedder construction until first use and shares the resulting
// instance across callers. Sessions created by the server all use the same
// backend, so building one client per session would waste connections.
type Lazy struct {
	once  sync.Once
	build func() (rag.Embedder, error)
	e     rag.Embedder
	err   error
}

// NewLazy wraps a constructor. The constructor runs at most once, on the
// first call to Get.
func NewLazy(build func() (rag.Embedder, error)) *Lazy {
	return &Lazy{build: build}
}

// Get returns the shared embedder, constructing it on first call. A failed
// construction is sticky: every subsequent call returns the same error.
func (l *Lazy) Get() (rag.Embedder, error) {
	l.once.Do(func() {
		l.e, l.err = l.build()
	})
	return l.e, l.err
}
