// Package extract converts uploaded file bytes into normalized page
// texts. PDF extraction is handled per page; plain-text formats are
// treated as a single page.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.Extractor = (*Service)(nil)

// Service dispatches extraction by file type.
type Service struct{}

// NewService creates an extraction service.
func NewService() *Service {
	return &Service{}
}

// Supports reports whether the file type can be extracted.
func (s *Service) Supports(fileType string) bool {
	switch strings.ToLower(fileType) {
	case "pdf", "txt", "md":
		return true
	default:
		return false
	}
}

// Extract returns the file's text split by page, in page order.
func (s *Service) Extract(ctx context.Context, data []byte, fileType string) ([]domain.PageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(fileType) {
	case "pdf":
		return extractPDF(data)
	case "txt", "md":
		return extractPlainText(data)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, fileType)
	}
}

func extractPDF(data []byte) ([]domain.PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: opening pdf: %v", domain.ErrExtraction, err)
	}

	var pages []domain.PageText
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// An unreadable page should not sink the whole document.
			continue
		}

		text = normalize(text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.PageText{Page: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no text could be extracted from pdf", domain.ErrExtraction)
	}
	return pages, nil
}

func extractPlainText(data []byte) ([]domain.PageText, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: file is not valid utf-8", domain.ErrExtraction)
	}

	text := normalize(string(data))
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrExtraction)
	}
	return []domain.PageText{{Page: 1, Text: text}}, nil
}

// normalize collapses line endings and strips trailing whitespace per
// line so chunk boundaries behave the same regardless of source platform.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
