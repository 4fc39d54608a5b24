package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FromPDF extracts plain text from a PDF document, page by page.
// Individual pages that fail to decode are skipped; a document where
// nothing decodes at all is an error. The underlying parser panics on
// some malformed files, so that is caught and reported as an error.
func FromPDF(input []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = Document{}
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	text := normalizeWhitespace(b.String())
	if text == "" {
		return Document{}, fmt.Errorf("pdf contained no extractable text")
	}
	return Document{Text: text}, nil
}
