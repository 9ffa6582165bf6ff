// Package drive provides a remote-storage adapter for Google Drive.
// Listing is restricted to file types the ingestion pipeline can
// extract; Google Docs are exported as plain text on download.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.RemoteStorage = (*Service)(nil)

// Google Workspace MIME types.
const (
	mimeTypeGoogleDoc = "application/vnd.google-apps.document"
	mimeTypeFolder    = "application/vnd.google-apps.folder"

	exportMimeText = "text/plain"
)

// MaxDownloadSize caps downloaded file content (50MB).
const MaxDownloadSize = 50 * 1024 * 1024

// Default rate limiting, kept below Google's 10 req/s per-user quota.
const (
	defaultRequestsPerSecond = 8.0
	defaultBurstSize         = 10
)

// listPageSize is the Drive API page size for listings.
const listPageSize = 100

// importableMimeTypes are the non-Workspace MIME types worth listing.
// docx is listed so users see the file; importing one fails with an
// explicit unsupported-type error rather than the file being invisible.
var importableMimeTypes = map[string]string{
	"application/pdf": "pdf",
	"text/plain":      "txt",
	"text/markdown":   "md",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
}

// Config holds configuration for the Drive adapter.
type Config struct {
	// CredentialsFile is a path to service-account credentials JSON.
	// Either this or TokenSource is required.
	CredentialsFile string

	// TokenSource supplies OAuth2 tokens, for user-delegated access.
	TokenSource oauth2.TokenSource

	// FolderID restricts listing to one folder. Empty lists the whole
	// accessible corpus.
	FolderID string

	// RequestsPerSecond overrides the default API rate limit.
	RequestsPerSecond float64
}

// Service lists and downloads files from Google Drive.
type Service struct {
	svc      *drive.Service
	folderID string
	limiter  *rate.Limiter
}

// NewService creates a Drive adapter.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	var opts []option.ClientOption
	switch {
	case cfg.TokenSource != nil:
		opts = append(opts, option.WithTokenSource(cfg.TokenSource))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("drive: credentials file or token source is required")
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	return &Service{
		svc:      svc,
		folderID: cfg.FolderID,
		limiter:  rate.NewLimiter(rate.Limit(rps), defaultBurstSize),
	}, nil
}

// ListFiles returns non-trashed files with supported types, including
// Google Docs (exported as text on download).
func (s *Service) ListFiles(ctx context.Context) ([]driven.RemoteFile, error) {
	query := "trashed = false"
	if s.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", s.folderID)
	}

	var files []driven.RemoteFile
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(query).
			PageSize(listPageSize).
			Fields("nextPageToken, files(id, name, mimeType, size, webViewLink)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("%w: listing files: %v", domain.ErrRemoteStorageUnavailable, err)
		}

		for _, f := range page.Files {
			if !s.importable(f) {
				continue
			}
			files = append(files, driven.RemoteFile{
				ID:          f.Id,
				Name:        f.Name,
				MimeType:    f.MimeType,
				Size:        f.Size,
				WebViewLink: f.WebViewLink,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return files, nil
}

// Download fetches a file's metadata and content. Google Docs are
// exported as plain text and renamed with a .txt extension.
func (s *Service) Download(ctx context.Context, fileID string) (*driven.RemoteFile, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	meta, err := s.svc.Files.Get(fileID).
		Fields("id, name, mimeType, size, webViewLink").
		Context(ctx).Do()
	if err != nil {
		return nil, nil, wrapAPIError("getting file metadata", err)
	}
	if meta.MimeType == mimeTypeFolder {
		return nil, nil, fmt.Errorf("%w: %q is a folder", domain.ErrInvalidInput, fileID)
	}

	remote := &driven.RemoteFile{
		ID:          meta.Id,
		Name:        meta.Name,
		MimeType:    meta.MimeType,
		Size:        meta.Size,
		WebViewLink: meta.WebViewLink,
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	var resp *http.Response
	if meta.MimeType == mimeTypeGoogleDoc {
		resp, err = s.svc.Files.Export(fileID, exportMimeText).Context(ctx).Download()
		remote.MimeType = exportMimeText
		if filepath.Ext(remote.Name) == "" {
			remote.Name += ".txt"
		}
	} else {
		resp, err = s.svc.Files.Get(fileID).Context(ctx).Download()
	}
	if err != nil {
		return nil, nil, wrapAPIError("downloading file", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize))
	if err != nil {
		return nil, nil, fmt.Errorf("reading file content: %w", err)
	}
	return remote, data, nil
}

// importable reports whether a listed file can be fed to ingestion.
func (s *Service) importable(f *drive.File) bool {
	if f.MimeType == mimeTypeGoogleDoc {
		return true
	}
	if _, ok := importableMimeTypes[f.MimeType]; ok {
		return true
	}
	// Some clients upload with generic MIME types; fall back to the
	// file extension.
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), ".")) {
	case "pdf", "txt", "md", "docx":
		return true
	}
	return false
}

func wrapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrRemoteStorageUnavailable, op, err)
}
