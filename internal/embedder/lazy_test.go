package embedder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
)

type countingEmbedder struct{}

func (countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestLazy_BuildsOnce(t *testing.T) {
	t.Parallel()

	var builds int
	l := NewLazy(func() (rag.Embedder, error) {
		builds++
		return countingEmbedder{}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Get(); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	if builds != 1 {
		t.Errorf("constructor ran %d times, want 1", builds)
	}
}

func TestLazy_StickyError(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend unreachable")
	var builds int
	l := NewLazy(func() (rag.Embedder, error) {
		builds++
		return nil, boom
	})

	for i := 0; i < 3; i++ {
		if _, err := l.Get(); !errors.Is(err, boom) {
			t.Fatalf("Get: got %v, want %v", err, boom)
		}
	}
	if builds != 1 {
		t.Errorf("constructor ran %d times, want 1", builds)
	}
}
