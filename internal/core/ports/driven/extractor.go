package driven

import (
	"context"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

// Extractor converts raw file bytes into normalized page texts.
// This is the black-box boundary to the extraction service; adapters are
// replaceable per file type.
type Extractor interface {
	// Extract returns the file's text split by page, in page order.
	// Returns domain.ErrUnsupportedFileType for unknown file types and
	// domain.ErrExtraction for unreadable or corrupt files.
	Extract(ctx context.Context, data []byte, fileType string) ([]domain.PageText, error)

	// Supports reports whether the file type can be extracted.
	Supports(fileType string) bool
}
