package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
)

// prose builds a paragraph of n distinct short words so overlap windows can
// be located exactly by suffix/prefix matching.
func prose(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	return strings.Join(words, " ")
}

// TestSplit_Empty verifies that an empty document yields an empty passage
// sequence without error.
func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	s := New(1000, 200)

	if got, skipped := s.Split(nil); len(got) != 0 || len(skipped) != 0 {
		t.Errorf("nil pages: expected nothing, got %d passages, %d skipped", len(got), len(skipped))
	}
	pages := []rag.Page{{Number: 1, Text: ""}, {Number: 2, Text: "   \n\n  "}}
	if got, skipped := s.Split(pages); len(got) != 0 || len(skipped) != 0 {
		t.Errorf("blank pages: expected nothing, got %d passages, %d skipped", len(got), len(skipped))
	}
}

// TestSplit_SizeBound verifies that every passage respects the configured
// chunk size for ordinary prose input.
func TestSplit_SizeBound(t *testing.T) {
	t.Parallel()

	const size = 100
	s := New(size, 20)

	passages, _ := s.Split([]rag.Page{{Number: 1, Text: prose(200)}})
	if len(passages) < 2 {
		t.Fatalf("expected multiple passages, got %d", len(passages))
	}
	for _, p := range passages {
		if len(p.Text) > size {
			t.Errorf("passage seq %d has %d chars, exceeds size %d", p.Seq, len(p.Text), size)
		}
	}
}

// TestSplit_MultibyteCountsRunes verifies that chunk sizes are measured in
// characters, not bytes, so multibyte text fills the configured chunk size
// instead of splitting early.
func TestSplit_MultibyteCountsRunes(t *testing.T) {
	t.Parallel()

	const size = 100
	s := New(size, 0)

	// 60 two-rune words joined by spaces: 179 runes but 299 bytes
	// (η and μ are 2 bytes each in UTF-8).
	words := make([]string, 60)
	for i := range words {
		words[i] = "ημ"
	}
	text := strings.Join(words, " ")

	passages, _ := s.Split([]rag.Page{{Number: 1, Text: text}})
	for _, p := range passages {
		if n := len([]rune(p.Text)); n > size {
			t.Errorf("passage seq %d has %d runes, exceeds size %d", p.Seq, n, size)
		}
	}
	// Rune counting packs 33 words (99 runes) per chunk, giving 2 passages;
	// byte counting would cut every 20 words (100 bytes), giving 3.
	if len(passages) != 2 {
		t.Errorf("expected 2 rune-packed passages, got %d", len(passages))
	}
}

// TestSplit_Overlap verifies that adjacent passages from one contiguous
// region share at least 1 and at most chunk_overlap characters.
func TestSplit_Overlap(t *testing.T) {
	t.Parallel()

	const size, overlap = 100, 20
	s := New(size, overlap)

	passages, _ := s.Split([]rag.Page{{Number: 1, Text: prose(200)}})
	if len(passages) < 2 {
		t.Fatalf("expected multiple passages, got %d", len(passages))
	}

	for i := 0; i < len(passages)-1; i++ {
		a, b := passages[i].Text, passages[i+1].Text
		shared := 0
		for k := 1; k <= overlap && k <= len(a) && k <= len(b); k++ {
			if a[len(a)-k:] == b[:k] {
				shared = k
			}
		}
		if shared < 1 {
			t.Errorf("passages %d/%d share no characters", i, i+1)
		}
	}
}

// TestSplit_PageTagging verifies page numbers and the monotone sequence
// index across pages.
func TestSplit_PageTagging(t *testing.T) {
	t.Parallel()

	s := New(100, 10)
	pages := []rag.Page{
		{Number: 1, Text: prose(60)},
		{Number: 2, Text: prose(60)},
	}
	passages, _ := s.Split(pages)
	if len(passages) < 4 {
		t.Fatalf("expected several passages, got %d", len(passages))
	}

	prevSeq := -1
	sawPage2 := false
	for _, p := range passages {
		if p.Seq != prevSeq+1 {
			t.Errorf("sequence index jumped from %d to %d", prevSeq, p.Seq)
		}
		prevSeq = p.Seq
		if p.Page == 2 {
			sawPage2 = true
		}
		if p.Page != 1 && p.Page != 2 {
			t.Errorf("unexpected page %d", p.Page)
		}
	}
	if !sawPage2 {
		t.Error("no passage tagged with page 2")
	}
}

// TestSplit_SkipsInvalidPage verifies that a page with undecodable text is
// skipped and reported, not fatal.
func TestSplit_SkipsInvalidPage(t *testing.T) {
	t.Parallel()

	s := New(100, 10)
	pages := []rag.Page{
		{Number: 1, Text: "first page content here"},
		{Number: 2, Text: "broken \xff\xfe bytes"},
		{Number: 3, Text: "third page content here"},
	}
	passages, skipped := s.Split(pages)

	if len(skipped) != 1 || skipped[0] != 2 {
		t.Fatalf("expected skipped pages [2], got %v", skipped)
	}
	for _, p := range passages {
		if p.Page == 2 {
			t.Error("passage produced from the skipped page")
		}
	}
	if len(passages) != 2 {
		t.Errorf("expected 2 passages from the good pages, got %d", len(passages))
	}
}

// TestSplit_PrefersParagraphBoundaries verifies that paragraphs too large
// to merge are not cut mid-paragraph.
func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	t.Parallel()

	para1 := prose(16) // ~80 chars, over half of size
	para2 := prose(16)
	s := New(100, 0)

	passages, _ := s.Split([]rag.Page{{Number: 1, Text: para1 + "\n\n" + para2}})
	if len(passages) != 2 {
		t.Fatalf("expected one passage per paragraph, got %d", len(passages))
	}
	if passages[0].Text != para1 || passages[1].Text != para2 {
		t.Error("passages do not align with paragraph boundaries")
	}
}

// TestSplit_IndivisibleUnitKeptWhole verifies that a single token longer
// than the chunk size is emitted whole rather than truncated mid-word.
func TestSplit_IndivisibleUnitKeptWhole(t *testing.T) {
	t.Parallel()

	monster := strings.Repeat("x", 150)
	s := New(100, 10)

	passages, _ := s.Split([]rag.Page{{Number: 1, Text: monster}})
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if passages[0].Text != monster {
		t.Error("indivisible token was altered or truncated")
	}
}
