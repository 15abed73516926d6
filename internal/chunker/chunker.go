// Package chunker splits extracted document pages into overlapping,
// size-bounded passages suitable for embedding and retrieval. Splitting is
// separator-priority recursive: paragraph breaks first, then line breaks,
// sentence boundaries, and spaces, so semantic boundaries are preferred
// over arbitrary cut points.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
)

// separators is the split priority order. A text that cannot be divided by
// any of these (a single unbroken token) is emitted whole rather than cut
// mid-word, even when it exceeds the chunk size.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter produces passages of at most Size characters, with consecutive
// passages from the same region sharing up to Overlap characters so no fact
// is split across a retrieval boundary without appearing whole in at least
// one passage. Overlap must be smaller than Size; the pipeline validates
// this before a Splitter is ever constructed.
type Splitter struct {
	size    int
	overlap int
}

// New constructs a Splitter with the given chunk size and overlap, both in
// characters.
func New(size, overlap int) *Splitter {
	return &Splitter{size: size, overlap: overlap}
}

// Split chunks the given pages into passages tagged with their source page
// number and a monotonically increasing sequence index. Pages whose text is
// not valid UTF-8 are skipped and reported in the second return value —
// a bad page is never pipeline-fatal. Empty input yields an empty result.
func (s *Splitter) Split(pages []rag.Page) ([]rag.Passage, []int) {
	var passages []rag.Passage
	var skipped []int
	seq := 0

	for _, page := range pages {
		if !utf8.ValidString(page.Text) {
			skipped = append(skipped, page.Number)
			continue
		}
		for _, text := range s.splitText(page.Text, separators) {
			passages = append(passages, rag.Passage{
				Text: text,
				Page: page.Number,
				Seq:  seq,
			})
			seq++
		}
	}
	return passages, skipped
}

// splitText recursively splits text by the first applicable separator and
// merges the resulting segments back into size-bounded chunks. Segments
// that still exceed the size are split again with the next separator; once
// the separator list is exhausted the segment is indivisible and is kept
// whole.
func (s *Splitter) splitText(text string, seps []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.size {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}
	if len(seps) == 0 {
		// Indivisible unit larger than the chunk size — emit whole.
		return []string{strings.TrimSpace(text)}
	}

	var out []string
	var pending []string // segments <= size awaiting merge

	for _, seg := range splitKeep(text, seps[0]) {
		if utf8.RuneCountInString(seg) <= s.size {
			pending = append(pending, seg)
			continue
		}
		out = append(out, s.merge(pending)...)
		pending = nil
		out = append(out, s.splitText(seg, seps[1:])...)
	}
	return append(out, s.merge(pending)...)
}

// merge greedily joins consecutive segments into chunks of at most size
// characters. When a chunk is emitted, trailing segments totalling at most
// overlap characters are carried into the next chunk. Sizes are counted in
// runes, not bytes, so multibyte text gets the full configured chunk size.
func (s *Splitter) merge(segments []string) []string {
	var out []string
	var window []string
	winLen := 0

	emit := func() {
		if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
			out = append(out, chunk)
		}
	}

	for _, seg := range segments {
		segLen := utf8.RuneCountInString(seg)
		if winLen+segLen > s.size && winLen > 0 {
			emit()
			for winLen > s.overlap || (winLen+segLen > s.size && winLen > 0) {
				winLen -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, seg)
		winLen += segLen
	}
	emit()
	return out
}

// splitKeep splits text by sep, keeping the separator attached to the end
// of each segment so that joining the segments reconstructs the original
// text exactly.
func splitKeep(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
