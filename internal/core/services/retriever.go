package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// Default retrieval policy.
const (
	DefaultTopK     = 5
	DefaultMinScore = 0.3
)

// RetrievalResult carries the evidence selected for a query along with
// the documents it came from, keyed by document ID. Documents are
// included so downstream citation building needs no extra lookups.
type RetrievalResult struct {
	Evidence  []domain.EvidenceItem
	Documents map[string]domain.Document
}

// Empty reports whether no evidence was retrieved.
func (r *RetrievalResult) Empty() bool {
	return len(r.Evidence) == 0
}

// Retriever selects the evidence set for a query: it embeds the query,
// ranks indexed chunks by similarity, and hydrates the survivors from
// the document store. Chunks belonging to documents that are not in
// completed state are excluded.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	docs     driven.DocumentStore
	log      *slog.Logger

	topK     int
	minScore float64
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopK sets how many chunks are considered per query.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithMinScore sets the similarity floor below which hits are dropped.
func WithMinScore(s float64) RetrieverOption {
	return func(r *Retriever) {
		if s >= 0 {
			r.minScore = s
		}
	}
}

// NewRetriever creates a Retriever over the given embedder, index and
// document store.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, docs driven.DocumentStore, log *slog.Logger, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder: embedder,
		index:    index,
		docs:     docs,
		log:      log,
		topK:     DefaultTopK,
		minScore: DefaultMinScore,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the evidence set for query. documentIDs, when
// non-empty, restricts retrieval to those documents. A failure to embed
// the query degrades to an empty evidence set rather than an error, so
// the caller can still produce an answer from conversational context.
func (r *Retriever) Retrieve(ctx context.Context, query string, documentIDs []string) (*RetrievalResult, error) {
	result := &RetrievalResult{Documents: make(map[string]domain.Document)}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn("query embedding failed, answering without evidence", "error", err)
		return result, nil
	}

	var filter *driven.QueryFilter
	if len(documentIDs) > 0 {
		filter = &driven.QueryFilter{DocumentIDs: documentIDs}
	}
	hits, err := r.index.Query(ctx, vector, r.topK, filter)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	for _, hit := range hits {
		if hit.Score < r.minScore {
			continue
		}

		doc, ok := result.Documents[hit.DocumentID]
		if !ok {
			fetched, err := r.docs.GetDocument(ctx, hit.DocumentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// Stale index entry; the document is gone.
					continue
				}
				return nil, fmt.Errorf("loading document %s: %w", hit.DocumentID, err)
			}
			doc = *fetched
			result.Documents[hit.DocumentID] = doc
		}
		if doc.Status != domain.StatusCompleted {
			continue
		}

		chunk, err := r.docs.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("loading chunk %s: %w", hit.ChunkID, err)
		}

		result.Evidence = append(result.Evidence, domain.EvidenceItem{
			ChunkID:       hit.ChunkID,
			DocumentID:    hit.DocumentID,
			Text:          chunk.Text,
			Pages:         hit.PageNumbers,
			Score:         hit.Score,
			SequenceIndex: hit.SequenceIndex,
		})
	}

	// Drop documents no surviving evidence refers to.
	used := make(map[string]bool, len(result.Evidence))
	for _, ev := range result.Evidence {
		used[ev.DocumentID] = true
	}
	for id := range result.Documents {
		if !used[id] {
			delete(result.Documents, id)
		}
	}

	return result, nil
}
