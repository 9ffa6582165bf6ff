package driven

import "context"

// BlobStore holds opaque binary artifacts: uploaded originals and
// rendered report documents.
type BlobStore interface {
	// Put stores data under the given key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get retrieves the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}
