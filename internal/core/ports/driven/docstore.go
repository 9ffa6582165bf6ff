package driven

import (
	"context"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

// DocumentStore persists documents and their chunks.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// UpdateStatus transitions a document's ingestion status.
	// reason is recorded when status is failed.
	UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, reason string) error

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// SaveChunks stores the chunks for a document, replacing any
	// previously stored set.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunks retrieves a document's chunks ordered by sequence index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListEmbeddedChunks returns every chunk that carries an embedding,
	// used to rebuild the vector index at startup.
	ListEmbeddedChunks(ctx context.Context) ([]domain.Chunk, error)
}
