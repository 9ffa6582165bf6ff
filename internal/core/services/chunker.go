package services

import (
	"strings"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

// Default chunking policy. Values follow the common 1000/200 split used
// for retrieval corpora.
const (
	DefaultMaxChunkChars = 1000
	DefaultOverlapChars  = 200

	// boundaryTolerance is how far back from the size limit a split
	// boundary may be before falling back to a hard cut.
	boundaryTolerance = 200
)

// chunkSeparators are tried in order when looking for a split point:
// paragraph break, line break, sentence end, word break.
var chunkSeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits normalized text into bounded, overlapping retrieval
// units, preserving page provenance. Chunking is deterministic: identical
// input always yields identical chunk boundaries.
type Chunker struct {
	maxChars  int
	overlap   int
	tolerance int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithMaxChunkChars sets the maximum chunk size in characters.
func WithMaxChunkChars(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithOverlapChars sets the overlap between consecutive chunks.
func WithOverlapChars(n int) ChunkerOption {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// NewChunker creates a Chunker with the given options.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		maxChars:  DefaultMaxChunkChars,
		overlap:   DefaultOverlapChars,
		tolerance: boundaryTolerance,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room to make progress.
	if c.overlap >= c.maxChars {
		c.overlap = c.maxChars / 4
	}
	if c.tolerance >= c.maxChars {
		c.tolerance = c.maxChars / 2
	}
	return c
}

// Chunk splits text into chunk candidates. Emitted chunks carry their
// page numbers (computed from boundaries) and sequence index; IDs and the
// document back-reference are assigned by the ingestion pipeline.
// Empty or whitespace-only input yields zero chunks.
func (c *Chunker) Chunk(text string, boundaries []domain.PageBoundary) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []domain.Chunk
	seq := 0
	start := 0
	for start < len(text) {
		end := c.cutPoint(text, start)

		segment := text[start:end]
		if strings.TrimSpace(segment) != "" {
			chunks = append(chunks, domain.Chunk{
				Text:          segment,
				PageNumbers:   domain.PagesForRange(boundaries, start, end),
				SequenceIndex: seq,
			})
			seq++
		}

		if end == len(text) {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// cutPoint returns the exclusive end offset for a chunk starting at
// start. Splitting prefers the separator nearest the size limit within
// the tolerance window; a hard cut applies when none exists.
func (c *Chunker) cutPoint(text string, start int) int {
	limit := start + c.maxChars
	if limit >= len(text) {
		return len(text)
	}

	window := text[start:limit]
	earliest := len(window) - c.tolerance

	for _, sep := range chunkSeparators {
		idx := strings.LastIndex(window, sep)
		if idx >= earliest && idx > 0 {
			return start + idx + len(sep)
		}
	}

	return limit
}
