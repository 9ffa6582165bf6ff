package driven

import "context"

// RemoteFile describes a file listed from the remote-storage provider.
type RemoteFile struct {
	// ID is the provider's file id.
	ID string

	// Name is the filename including extension.
	Name string

	// MimeType is the provider-reported mime type.
	MimeType string

	// Size is the file size in bytes, when the provider reports it.
	Size int64

	// WebViewLink is the browser URL for the file.
	WebViewLink string
}

// RemoteStorage lists and downloads files from an external provider
// (e.g. Google Drive). Listing is filtered to supported file types.
type RemoteStorage interface {
	// ListFiles returns non-trashed files with supported extensions.
	ListFiles(ctx context.Context) ([]RemoteFile, error)

	// Download fetches a file's metadata and content by provider id.
	Download(ctx context.Context, fileID string) (*RemoteFile, []byte, error)
}
