package budget

import (
	"strings"
	"testing"

	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
)

func TestEstimate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"short rounds up to one", "ab", 1},
		{"exact multiple", strings.Repeat("x", 40), 10},
		{"truncates", strings.Repeat("x", 43), 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Estimate(tc.in); got != tc.want {
				t.Errorf("Estimate(%d chars) = %d, want %d", len(tc.in), got, tc.want)
			}
		})
	}
}

func TestEstimatePassages_IncludesOverhead(t *testing.T) {
	t.Parallel()

	passages := []rag.Passage{
		{Text: strings.Repeat("a", 40)},
		{Text: strings.Repeat("b", 40)},
	}
	// Two passages of 10 tokens each plus 8 tokens overhead per passage.
	if got := EstimatePassages(passages); got != 36 {
		t.Errorf("EstimatePassages = %d, want 36", got)
	}
}

func TestTrimPassages_FitsUntouched(t *testing.T) {
	t.Parallel()

	passages := []rag.Passage{
		{Text: "short one", Page: 1},
		{Text: "short two", Page: 2},
	}
	got := TrimPassages("system prompt", passages, 1000)
	if len(got) != 2 {
		t.Errorf("expected all passages kept, got %d", len(got))
	}
}

func TestTrimPassages_DropsTailFirst(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", 400) // 100 tokens each
	passages := []rag.Passage{
		{Text: big, Page: 1},
		{Text: big, Page: 2},
		{Text: big, Page: 3},
	}
	got := TrimPassages("", passages, 250)
	if len(got) != 2 {
		t.Fatalf("expected 2 passages after trim, got %d", len(got))
	}
	if got[0].Page != 1 || got[1].Page != 2 {
		t.Errorf("trim should drop from the tail, kept pages %d and %d", got[0].Page, got[1].Page)
	}
}

func TestTrimPassages_KeepsAtLeastOne(t *testing.T) {
	t.Parallel()

	passages := []rag.Passage{
		{Text: strings.Repeat("x", 4000), Page: 7},
	}
	got := TrimPassages(strings.Repeat("y", 4000), passages, 10)
	if len(got) != 1 {
		t.Fatalf("expected the single oversized passage kept, got %d", len(got))
	}
	if got[0].Page != 7 {
		t.Errorf("unexpected passage kept: page %d", got[0].Page)
	}
}

func TestTrimPassages_Empty(t *testing.T) {
	t.Parallel()

	if got := TrimPassages("anything", nil, 100); len(got) != 0 {
		t.Errorf("expected empty result, got %d passages", len(got))
	}
}
