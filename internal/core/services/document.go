package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driving"
)

// DefaultMaxUploadBytes caps accepted upload size.
const DefaultMaxUploadBytes = 50 << 20

// DocumentManager implements the document lifecycle: it validates and
// stores uploads, hands them to the ingestion pipeline, and tears down
// every trace of a document on deletion.
type DocumentManager struct {
	docs     driven.DocumentStore
	blobs    driven.BlobStore
	index    driven.VectorIndex
	ingestor *Ingestor
	checker  driven.Extractor
	remote   driven.RemoteStorage
	log      *slog.Logger

	maxUploadBytes int64
}

var _ driving.DocumentService = (*DocumentManager)(nil)

// DocumentOption configures a DocumentManager.
type DocumentOption func(*DocumentManager)

// WithMaxUploadBytes sets the upload size limit.
func WithMaxUploadBytes(n int64) DocumentOption {
	return func(m *DocumentManager) {
		if n > 0 {
			m.maxUploadBytes = n
		}
	}
}

// WithRemoteStorage enables import from a remote-storage provider.
func WithRemoteStorage(remote driven.RemoteStorage) DocumentOption {
	return func(m *DocumentManager) {
		m.remote = remote
	}
}

// NewDocumentManager creates a DocumentManager. The extractor is used
// only to reject unsupported file types up front.
func NewDocumentManager(docs driven.DocumentStore, blobs driven.BlobStore, index driven.VectorIndex, ingestor *Ingestor, checker driven.Extractor, log *slog.Logger, opts ...DocumentOption) *DocumentManager {
	m := &DocumentManager{
		docs:           docs,
		blobs:          blobs,
		index:          index,
		ingestor:       ingestor,
		checker:        checker,
		log:            log,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Upload accepts a file, stores the original, and schedules ingestion.
func (m *DocumentManager) Upload(ctx context.Context, filename string, data []byte) (*domain.Document, error) {
	return m.create(ctx, filename, data, "", "")
}

func (m *DocumentManager) create(ctx context.Context, filename string, data []byte, sourceURL, remoteFileID string) (*domain.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: empty filename", domain.ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	if int64(len(data)) > m.maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, m.maxUploadBytes)
	}

	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !m.checker.Supports(fileType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, fileType)
	}

	doc := &domain.Document{
		ID:               uuid.NewString(),
		OriginalFilename: filepath.Base(filename),
		FileType:         fileType,
		FileSize:         int64(len(data)),
		UploadDate:       time.Now().UTC(),
		Status:           domain.StatusPending,
		SourceURL:        sourceURL,
		RemoteFileID:     remoteFileID,
	}
	doc.BlobKey = "originals/" + doc.ID

	contentType := mime.TypeByExtension("." + fileType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := m.blobs.Put(ctx, doc.BlobKey, data, contentType); err != nil {
		return nil, fmt.Errorf("storing original: %w", err)
	}

	if err := m.docs.SaveDocument(ctx, doc); err != nil {
		if derr := m.blobs.Delete(ctx, doc.BlobKey); derr != nil {
			m.log.Warn("cleaning up orphaned blob", "key", doc.BlobKey, "error", derr)
		}
		return nil, fmt.Errorf("saving document: %w", err)
	}

	if err := m.ingestor.Enqueue(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("scheduling ingestion: %w", err)
	}

	m.log.Info("document accepted",
		"document_id", doc.ID,
		"filename", doc.OriginalFilename,
		"size", doc.FileSize,
	)
	return doc, nil
}

// Get returns a document by ID.
func (m *DocumentManager) Get(ctx context.Context, id string) (*domain.Document, error) {
	return m.docs.GetDocument(ctx, id)
}

// List returns all documents, newest first.
func (m *DocumentManager) List(ctx context.Context) ([]domain.Document, error) {
	return m.docs.ListDocuments(ctx)
}

// Delete removes a document in any state. Index entries go first so
// retrieval stops serving the document before its rows disappear.
func (m *DocumentManager) Delete(ctx context.Context, id string) error {
	doc, err := m.docs.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if err := m.index.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("removing index entries: %w", err)
	}
	if err := m.docs.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if err := m.blobs.Delete(ctx, doc.BlobKey); err != nil {
		m.log.Warn("deleting stored original", "key", doc.BlobKey, "error", err)
	}

	m.log.Info("document deleted", "document_id", id, "filename", doc.OriginalFilename)
	return nil
}

// ListRemoteFiles lists importable files from the remote-storage
// provider.
func (m *DocumentManager) ListRemoteFiles(ctx context.Context) ([]driven.RemoteFile, error) {
	if m.remote == nil {
		return nil, domain.ErrRemoteStorageUnavailable
	}
	return m.remote.ListFiles(ctx)
}

// ImportRemoteFile downloads a remote file and feeds it through the
// upload path, preserving its origin link.
func (m *DocumentManager) ImportRemoteFile(ctx context.Context, fileID string) (*domain.Document, error) {
	if m.remote == nil {
		return nil, domain.ErrRemoteStorageUnavailable
	}
	if strings.TrimSpace(fileID) == "" {
		return nil, fmt.Errorf("%w: empty file id", domain.ErrInvalidInput)
	}

	remote, data, err := m.remote.Download(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("downloading remote file %s: %w", fileID, err)
	}

	return m.create(ctx, remote.Name, data, remote.WebViewLink, remote.ID)
}
