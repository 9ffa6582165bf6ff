package driving

import (
	"context"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// DocumentService manages the document lifecycle: upload, listing,
// deletion, and import from remote storage.
type DocumentService interface {
	// Upload accepts raw file bytes and returns the created document in
	// pending state. Ingestion proceeds asynchronously; poll Get for
	// status.
	Upload(ctx context.Context, filename string, data []byte) (*domain.Document, error)

	// Get returns a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document, its chunks, its index entries and its
	// stored original. Deletion is terminal in any state.
	Delete(ctx context.Context, id string) error

	// ListRemoteFiles lists importable files from the remote-storage
	// provider.
	ListRemoteFiles(ctx context.Context) ([]driven.RemoteFile, error)

	// ImportRemoteFile downloads a remote file and feeds it into the
	// upload path as if locally uploaded.
	ImportRemoteFile(ctx context.Context, fileID string) (*domain.Document, error)
}
