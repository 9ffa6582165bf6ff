package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a brute-force, in-memory cosine similarity index. Embeddings
// are L2-normalized at insert time so queries reduce to dot products.
// The corpus sizes this serves make exhaustive scans entirely adequate.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*indexEntry // keyed by chunk ID
}

type indexEntry struct {
	chunkID       string
	documentID    string
	pageNumbers   []int
	sequenceIndex int
	normalized    []float32
}

// New creates an empty index.
func New() *Index {
	return &Index{entries: make(map[string]*indexEntry)}
}

// Insert adds or replaces an entry. Entries with a zero-magnitude
// embedding are rejected.
func (x *Index) Insert(_ context.Context, entry driven.VectorEntry) error {
	normalized, ok := normalize(entry.Embedding)
	if !ok {
		return fmt.Errorf("%w: zero-magnitude embedding for chunk %s", domain.ErrIndex, entry.ChunkID)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[entry.ChunkID] = &indexEntry{
		chunkID:       entry.ChunkID,
		documentID:    entry.DocumentID,
		pageNumbers:   append([]int(nil), entry.PageNumbers...),
		sequenceIndex: entry.SequenceIndex,
		normalized:    normalized,
	}
	return nil
}

// DeleteByDocument removes every entry belonging to the document.
func (x *Index) DeleteByDocument(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, e := range x.entries {
		if e.documentID == documentID {
			delete(x.entries, id)
		}
	}
	return nil
}

// Query returns the k most similar entries by cosine similarity, ties
// broken by ascending sequence index then chunk ID.
func (x *Index) Query(_ context.Context, vector []float32, k int, filter *driven.QueryFilter) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	query, ok := normalize(vector)
	if !ok {
		return nil, fmt.Errorf("%w: zero-magnitude query vector", domain.ErrIndex)
	}

	var allowed map[string]bool
	if filter != nil && len(filter.DocumentIDs) > 0 {
		allowed = make(map[string]bool, len(filter.DocumentIDs))
		for _, id := range filter.DocumentIDs {
			allowed[id] = true
		}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(x.entries))
	for _, e := range x.entries {
		if allowed != nil && !allowed[e.documentID] {
			continue
		}
		if len(e.normalized) != len(query) {
			return nil, fmt.Errorf("%w: dimension mismatch (%d vs %d)", domain.ErrIndex, len(e.normalized), len(query))
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:       e.chunkID,
			DocumentID:    e.documentID,
			PageNumbers:   append([]int(nil), e.pageNumbers...),
			SequenceIndex: e.sequenceIndex,
			Score:         float64(dot(query, e.normalized)),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].SequenceIndex != hits[j].SequenceIndex {
			return hits[i].SequenceIndex < hits[j].SequenceIndex
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Size returns the number of entries in the index.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func normalize(v []float32) ([]float32, bool) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 || len(v) == 0 {
		return nil, false
	}
	mag := math.Sqrt(sum)

	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / mag)
	}
	return out, true
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
