package tools

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNoText = errors.New("pdf: no extractable text")

// TextExtractor turns raw PDF bytes into plain text.
type TextExtractor interface {
	Extract(data []byte) (ExtractedText, error)
}

type ExtractedText struct {
	Text  string
	Pages int
}

type PDFExtractor struct{}

// Extract reads every page's plain text in order. Pages that fail to decode
// are skipped; a document with no text at all is an error (scanned PDFs).
func (PDFExtractor) Extract(data []byte) (res ExtractedText, err error) {
	defer func() {
		// the pdf package panics on some malformed inputs
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return res, fmt.Errorf("pdf: open: %w", err)
	}

	var sb strings.Builder
	res.Pages = reader.NumPage()
	for i := 1; i <= res.Pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	res.Text = CollapseSpaces(sb.String())
	if res.Text == "" {
		return res, ErrNoText
	}
	return res, nil
}
