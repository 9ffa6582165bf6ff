package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFileType indicates a file type no extractor handles.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// Ingestion errors.

	// ErrExtraction indicates an unreadable or corrupt file.
	// The document moves to failed with no retry.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingService indicates an embedding call failed.
	// Retried with backoff at the ingestion worker up to a bounded
	// attempt count, then the document moves to failed.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrIndex indicates a vector index insertion failure.
	// Fatal for that document's ingestion.
	ErrIndex = errors.New("vector index error")

	// Synthesis errors.

	// ErrCompletionService indicates the completion service failed.
	// The turn is not committed to conversation history.
	ErrCompletionService = errors.New("completion service error")

	// ErrRemoteStorageUnavailable indicates the remote-storage provider
	// is not configured or unreachable.
	ErrRemoteStorageUnavailable = errors.New("remote storage unavailable")
)
