// Package extract converts uploaded document bytes into per-page text.
package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/melakudessie/WHO-AMR-chat/internal/rag"
)

// PDFPages extracts plain text from each page of a PDF. Pages that cannot
// be parsed are skipped and reported in the second return value rather than
// failing the whole document. An unreadable file returns an error.
func PDFPages(content []byte) ([]rag.Page, []int, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, nil, fmt.Errorf("extract: open PDF: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]rag.Page, 0, numPages)
	var skipped []int
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			skipped = append(skipped, i)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			skipped = append(skipped, i)
			continue
		}
		pages = append(pages, rag.Page{Number: i, Text: text})
	}
	return pages, skipped, nil
}
