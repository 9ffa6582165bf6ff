package domain

import (
	"sort"
	"time"
)

// ProcessingStatus tracks a document through the ingestion state machine.
type ProcessingStatus string

// Valid processing states. Transitions are strictly
// pending -> processing -> {completed, failed}.
const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Document represents an uploaded file tracked through ingestion.
// Once completed a document is immutable except for deletion.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OriginalFilename is the name the file was uploaded with.
	OriginalFilename string

	// FileType is the lowercase extension without the dot (pdf, docx, ...).
	FileType string

	// FileSize is the size of the original file in bytes.
	FileSize int64

	// UploadDate is when the upload was accepted.
	UploadDate time.Time

	// Status is the current ingestion state.
	Status ProcessingStatus

	// FailureReason is set when Status is failed.
	FailureReason string

	// SourceURL links back to the remote-storage origin, if any.
	SourceURL string

	// RemoteFileID is the remote-storage file id for imported documents.
	RemoteFileID string

	// BlobKey locates the original bytes in the blob store.
	BlobKey string
}

// PageBoundary maps a character offset in extracted text to a page number.
// A boundary covers [StartOffset, nextBoundary.StartOffset).
type PageBoundary struct {
	StartOffset int
	Page        int
}

// PageText is one page of extracted text as produced by an extractor.
type PageText struct {
	Page int
	Text string
}

// Chunk is a bounded, page-tagged span of a document's text and the unit
// of retrieval. The embedding is nil until the embedding step has run.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links back to the parent document.
	DocumentID string

	// Text is the chunk content.
	Text string

	// PageNumbers are the pages the chunk's character range spans,
	// ascending and deduplicated. May be empty for unpaged sources.
	PageNumbers []int

	// SequenceIndex is the ordinal position within the document.
	SequenceIndex int

	// Embedding is the vector representation, set after embedding.
	Embedding []float32
}

// EvidenceItem is a retrieved chunk made available to answer synthesis.
type EvidenceItem struct {
	ChunkID       string
	DocumentID    string
	Text          string
	Pages         []int
	Score         float64
	SequenceIndex int
}

// PagesForRange returns the ascending, deduplicated page numbers spanned by
// the character range [start, end) given the page boundaries of the text.
// Boundaries must be sorted by StartOffset.
func PagesForRange(boundaries []PageBoundary, start, end int) []int {
	if len(boundaries) == 0 || end <= start {
		return nil
	}

	seen := make(map[int]bool)
	var pages []int
	for i, b := range boundaries {
		bEnd := int(^uint(0) >> 1) // last boundary extends to the end of text
		if i+1 < len(boundaries) {
			bEnd = boundaries[i+1].StartOffset
		}
		if b.StartOffset < end && bEnd > start {
			if !seen[b.Page] {
				seen[b.Page] = true
				pages = append(pages, b.Page)
			}
		}
	}

	sort.Ints(pages)
	return pages
}
