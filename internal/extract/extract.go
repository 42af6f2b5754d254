// Package extract pulls per-page plain text out of PDF files.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ledongthuc/pdf"
)

// Page is the text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor returns the pages of a document in order. Unreadable input yields
// no pages rather than an error; only cancellation is reported as one.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Page, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, path string) ([]Page, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, path string) ([]Page, error) {
	return f(ctx, path)
}

// PDF extracts text with github.com/ledongthuc/pdf.
type PDF struct{}

var _ Extractor = PDF{}

// Extract reads every page of the PDF at path. Pages without text are
// omitted; page numbers keep their position in the document.
func (PDF) Extract(ctx context.Context, path string) ([]Page, error) {
	pages, err := readPages(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("failed to read PDF", "path", path, "err", err)
		return nil, nil
	}
	return pages, nil
}

func readPages(ctx context.Context, path string) (pages []Page, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			log.Debug("skipping unreadable page", "path", path, "page", i, "err", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
