package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

func TestChunker_Chunk_EmptyInput(t *testing.T) {
	c := NewChunker()

	assert.Nil(t, c.Chunk("", nil))
	assert.Nil(t, c.Chunk("   \n\t  ", nil))
}

func TestChunker_Chunk_ShortText(t *testing.T) {
	c := NewChunker()
	boundaries := []domain.PageBoundary{{StartOffset: 0, Page: 1}}

	chunks := c.Chunk("a short document", boundaries)

	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, []int{1}, chunks[0].PageNumbers)
}

func TestChunker_Chunk_PrefersParagraphBoundary(t *testing.T) {
	c := NewChunker(WithMaxChunkChars(100), WithOverlapChars(0))

	para1 := strings.Repeat("a", 80)
	para2 := strings.Repeat("b", 80)
	text := para1 + "\n\n" + para2

	chunks := c.Chunk(text, nil)

	require.Len(t, chunks, 2)
	assert.Equal(t, para1, strings.TrimSpace(chunks[0].Text))
	assert.Equal(t, para2, chunks[1].Text)
}

func TestChunker_Chunk_FallsBackToSentenceBoundary(t *testing.T) {
	c := NewChunker(WithMaxChunkChars(100), WithOverlapChars(0))

	first := strings.Repeat("x", 70) + "."
	second := strings.Repeat("y", 70)
	text := first + " " + second

	chunks := c.Chunk(text, nil)

	require.Len(t, chunks, 2)
	assert.Equal(t, first, strings.TrimSpace(chunks[0].Text))
	assert.Equal(t, second, chunks[1].Text)
}

func TestChunker_Chunk_HardCutWithoutSeparators(t *testing.T) {
	c := NewChunker(WithMaxChunkChars(100), WithOverlapChars(0))

	chunks := c.Chunk(strings.Repeat("z", 250), nil)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Text, 100)
	assert.Len(t, chunks[1].Text, 100)
	assert.Len(t, chunks[2].Text, 50)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, 1, chunks[1].SequenceIndex)
	assert.Equal(t, 2, chunks[2].SequenceIndex)
}

func TestChunker_Chunk_OverlapsConsecutiveChunks(t *testing.T) {
	c := NewChunker(WithMaxChunkChars(100), WithOverlapChars(20))

	chunks := c.Chunk(strings.Repeat("z", 180), nil)

	require.Len(t, chunks, 2)
	tail := chunks[0].Text[len(chunks[0].Text)-20:]
	head := chunks[1].Text[:20]
	assert.Equal(t, tail, head)
}

func TestChunker_Chunk_TagsPagesAcrossBoundaries(t *testing.T) {
	c := NewChunker()
	boundaries := []domain.PageBoundary{
		{StartOffset: 0, Page: 1},
		{StartOffset: 1000, Page: 2},
		{StartOffset: 2000, Page: 3},
	}

	// 2500 chars of word-separated filler so chunks split on spaces.
	chunks := c.Chunk(strings.Repeat("w ", 1250), boundaries)

	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1}, chunks[0].PageNumbers)
	assert.Equal(t, []int{1, 2}, chunks[1].PageNumbers)
	assert.Equal(t, []int{2, 3}, chunks[2].PageNumbers)
}

func TestChunker_Chunk_Deterministic(t *testing.T) {
	c := NewChunker()
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 60)
	boundaries := []domain.PageBoundary{
		{StartOffset: 0, Page: 1},
		{StartOffset: 1400, Page: 2},
	}

	first := c.Chunk(text, boundaries)
	second := c.Chunk(text, boundaries)

	require.Equal(t, first, second)
	assert.NotEmpty(t, first)
}
