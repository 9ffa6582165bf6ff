package driven

import "context"

// VectorEntry is a chunk embedding plus the denormalized metadata needed
// to filter and order query results.
type VectorEntry struct {
	ChunkID       string
	DocumentID    string
	PageNumbers   []int
	SequenceIndex int
	Embedding     []float32
}

// VectorHit is a similarity search result. Higher score means more similar.
type VectorHit struct {
	ChunkID       string
	DocumentID    string
	PageNumbers   []int
	SequenceIndex int
	Score         float64
}

// QueryFilter restricts query candidates to the given documents.
// A nil filter searches the full index.
type QueryFilter struct {
	DocumentIDs []string
}

// VectorIndex provides similarity search over chunk embeddings.
//
// Reads never block on other reads. Insert is idempotent on chunk ID
// (re-insert replaces). DeleteByDocument is atomic with respect to
// concurrent queries: a query started after it returns never observes
// entries for that document.
type VectorIndex interface {
	// Insert adds or replaces an entry.
	Insert(ctx context.Context, entry VectorEntry) error

	// DeleteByDocument removes every entry belonging to the document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Query returns the k nearest entries by cosine similarity,
	// ties broken by ascending sequence index then chunk ID.
	// k is clamped to the index size.
	Query(ctx context.Context, vector []float32, k int, filter *QueryFilter) ([]VectorHit, error)

	// Size returns the number of entries in the index.
	Size() int
}
