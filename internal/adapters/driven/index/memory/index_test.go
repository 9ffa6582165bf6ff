package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

func seedIndex(t *testing.T, x *Index) {
	t.Helper()
	ctx := context.Background()
	entries := []driven.VectorEntry{
		{ChunkID: "c1", DocumentID: "doc-1", SequenceIndex: 0, Embedding: []float32{1, 0, 0}},
		{ChunkID: "c2", DocumentID: "doc-1", SequenceIndex: 1, Embedding: []float32{0.9, 0.1, 0}},
		{ChunkID: "c3", DocumentID: "doc-2", SequenceIndex: 0, Embedding: []float32{0, 1, 0}},
	}
	for _, e := range entries {
		require.NoError(t, x.Insert(ctx, e))
	}
}

func TestIndex_Query_RanksByCosineSimilarity(t *testing.T) {
	x := New()
	seedIndex(t, x)

	hits, err := x.Query(context.Background(), []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "c2", hits[1].ChunkID)
	assert.Equal(t, "c3", hits[2].ChunkID)
	assert.Greater(t, hits[1].Score, hits[2].Score)
}

func TestIndex_Query_ClampsK(t *testing.T) {
	x := New()
	seedIndex(t, x)

	hits, err := x.Query(context.Background(), []float32{1, 0, 0}, 100, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = x.Query(context.Background(), []float32{1, 0, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_Query_FilterRestrictsDocuments(t *testing.T) {
	x := New()
	seedIndex(t, x)

	hits, err := x.Query(context.Background(), []float32{1, 0, 0}, 10, &driven.QueryFilter{
		DocumentIDs: []string{"doc-2"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c3", hits[0].ChunkID)
}

func TestIndex_Query_TieBreaksBySequenceThenID(t *testing.T) {
	ctx := context.Background()
	x := New()

	// Identical embeddings produce identical scores.
	require.NoError(t, x.Insert(ctx, driven.VectorEntry{ChunkID: "b", DocumentID: "d", SequenceIndex: 1, Embedding: []float32{1, 0}}))
	require.NoError(t, x.Insert(ctx, driven.VectorEntry{ChunkID: "a", DocumentID: "d", SequenceIndex: 1, Embedding: []float32{1, 0}}))
	require.NoError(t, x.Insert(ctx, driven.VectorEntry{ChunkID: "z", DocumentID: "d", SequenceIndex: 0, Embedding: []float32{1, 0}}))

	hits, err := x.Query(ctx, []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "z", hits[0].ChunkID)
	assert.Equal(t, "a", hits[1].ChunkID)
	assert.Equal(t, "b", hits[2].ChunkID)
}

func TestIndex_Insert_ReplacesOnSameChunkID(t *testing.T) {
	ctx := context.Background()
	x := New()

	require.NoError(t, x.Insert(ctx, driven.VectorEntry{ChunkID: "c1", DocumentID: "d", Embedding: []float32{1, 0}}))
	require.NoError(t, x.Insert(ctx, driven.VectorEntry{ChunkID: "c1", DocumentID: "d", Embedding: []float32{0, 1}}))

	assert.Equal(t, 1, x.Size())

	hits, err := x.Query(ctx, []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestIndex_Insert_RejectsZeroVector(t *testing.T) {
	err := New().Insert(context.Background(), driven.VectorEntry{ChunkID: "c1", Embedding: []float32{0, 0}})
	assert.ErrorIs(t, err, domain.ErrIndex)
}

func TestIndex_Query_DimensionMismatch(t *testing.T) {
	x := New()
	seedIndex(t, x)

	_, err := x.Query(context.Background(), []float32{1, 0}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrIndex)
}

func TestIndex_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	x := New()
	seedIndex(t, x)

	require.NoError(t, x.DeleteByDocument(ctx, "doc-1"))
	assert.Equal(t, 1, x.Size())

	hits, err := x.Query(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "doc-1", h.DocumentID)
	}
}

func TestIndex_ConcurrentQueriesAndWrites(t *testing.T) {
	ctx := context.Background()
	x := New()
	seedIndex(t, x)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = x.Insert(ctx, driven.VectorEntry{
				ChunkID:    fmt.Sprintf("w%d", n),
				DocumentID: "doc-w",
				Embedding:  []float32{1, float32(n), 0},
			})
		}(i)
		go func() {
			defer wg.Done()
			_, err := x.Query(ctx, []float32{1, 0, 0}, 5, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 13, x.Size())
}
