package store

import (
	"context"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_AppendAndHistory(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "sess-a", Turn{Role: RoleUser, Content: "what is the mortality rate?"}); err != nil {
		t.Fatalf("append user: %v", err)
	}
	if err := s.Append(ctx, "sess-a", Turn{Role: RoleAssistant, Content: "it is 12% [Page 4]", CitedPages: []int{4, 9}}); err != nil {
		t.Fatalf("append assistant: %v", err)
	}

	turns, err := s.History(ctx, "sess-a")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("want 2 turns, got %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Content != "what is the mortality rate?" {
		t.Errorf("turn[0]: got %s/%s", turns[0].Role, turns[0].Content)
	}
	if turns[1].Role != RoleAssistant {
		t.Errorf("turn[1]: want assistant, got %s", turns[1].Role)
	}
	if len(turns[1].CitedPages) != 2 || turns[1].CitedPages[0] != 4 || turns[1].CitedPages[1] != 9 {
		t.Errorf("turn[1].CitedPages = %v, want [4 9]", turns[1].CitedPages)
	}
	if len(turns[0].CitedPages) != 0 {
		t.Errorf("user turn should carry no citations, got %v", turns[0].CitedPages)
	}
}

func Test_Store_SessionIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "sess-x", Turn{Role: RoleUser, Content: "from x"}); err != nil {
		t.Fatalf("append x: %v", err)
	}
	if err := s.Append(ctx, "sess-y", Turn{Role: RoleUser, Content: "from y"}); err != nil {
		t.Fatalf("append y: %v", err)
	}

	turnsX, err := s.History(ctx, "sess-x")
	if err != nil {
		t.Fatalf("history x: %v", err)
	}
	turnsY, err := s.History(ctx, "sess-y")
	if err != nil {
		t.Fatalf("history y: %v", err)
	}

	if len(turnsX) != 1 || turnsX[0].Content != "from x" {
		t.Errorf("session x isolation failed: got %v", turnsX)
	}
	if len(turnsY) != 1 || turnsY[0].Content != "from y" {
		t.Errorf("session y isolation failed: got %v", turnsY)
	}
}

func Test_Store_Clear(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, c := range []string{"one", "two"} {
		if err := s.Append(ctx, "sess-clear", Turn{Role: RoleUser, Content: c}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Append(ctx, "sess-keep", Turn{Role: RoleUser, Content: "stays"}); err != nil {
		t.Fatalf("append keep: %v", err)
	}

	if err := s.Clear(ctx, "sess-clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	cleared, err := s.History(ctx, "sess-clear")
	if err != nil {
		t.Fatalf("history cleared: %v", err)
	}
	if len(cleared) != 0 {
		t.Errorf("want 0 turns after clear, got %d", len(cleared))
	}
	kept, err := s.History(ctx, "sess-keep")
	if err != nil {
		t.Fatalf("history kept: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("clear leaked into other session: got %d turns", len(kept))
	}
}

func Test_Store_EmptySessionReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	turns, err := s.History(context.Background(), "sess-none")
	if err != nil {
		t.Fatalf("history empty: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("want 0 turns, got %d", len(turns))
	}
}

func Test_Store_OldestFirstOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		if err := s.Append(ctx, "sess-order", Turn{Role: RoleUser, Content: c}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	turns, err := s.History(ctx, "sess-order")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != len(contents) {
		t.Fatalf("want %d turns, got %d", len(contents), len(turns))
	}
	for i, want := range contents {
		if turns[i].Content != want {
			t.Errorf("turn[%d]: want %q, got %q", i, want, turns[i].Content)
		}
	}
}

func Test_NopStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := Nop()

	if err := s.Append(ctx, "sess", Turn{Role: RoleUser, Content: "x"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	turns, err := s.History(ctx, "sess")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("nop store should retain nothing, got %d turns", len(turns))
	}
	if err := s.Clear(ctx, "sess"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
