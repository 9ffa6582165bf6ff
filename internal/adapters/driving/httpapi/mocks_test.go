package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driving"
	"github.com/meddocs-labs/meddocs/internal/logger"
)

// Function-field mocks for the driving ports. Tests override only the
// calls they care about.

type mockDocumentService struct {
	uploadFunc      func(ctx context.Context, filename string, data []byte) (*domain.Document, error)
	getFunc         func(ctx context.Context, id string) (*domain.Document, error)
	listFunc        func(ctx context.Context) ([]domain.Document, error)
	deleteFunc      func(ctx context.Context, id string) error
	listRemoteFunc  func(ctx context.Context) ([]driven.RemoteFile, error)
	importRemoteFnc func(ctx context.Context, fileID string) (*domain.Document, error)
}

func (m *mockDocumentService) Upload(ctx context.Context, filename string, data []byte) (*domain.Document, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, filename, data)
	}
	return pendingDocument("doc-1", filename, int64(len(data))), nil
}

func (m *mockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(ctx context.Context) ([]domain.Document, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockDocumentService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockDocumentService) ListRemoteFiles(ctx context.Context) ([]driven.RemoteFile, error) {
	if m.listRemoteFunc != nil {
		return m.listRemoteFunc(ctx)
	}
	return nil, domain.ErrRemoteStorageUnavailable
}

func (m *mockDocumentService) ImportRemoteFile(ctx context.Context, fileID string) (*domain.Document, error) {
	if m.importRemoteFnc != nil {
		return m.importRemoteFnc(ctx, fileID)
	}
	return nil, domain.ErrRemoteStorageUnavailable
}

type mockChatService struct {
	chatFunc func(ctx context.Context, message, sessionID string) (*driving.ChatResult, error)
}

func (m *mockChatService) Chat(ctx context.Context, message, sessionID string) (*driving.ChatResult, error) {
	if m.chatFunc != nil {
		return m.chatFunc(ctx, message, sessionID)
	}
	return &driving.ChatResult{Content: "mock answer", SessionID: "session-1"}, nil
}

type mockReportService struct {
	generateFunc func(ctx context.Context, req driving.ReportRequest) (*domain.Report, error)
	getFunc      func(ctx context.Context, id string) (*domain.Report, error)
	listFunc     func(ctx context.Context) ([]domain.Report, error)
	downloadFunc func(ctx context.Context, id string) ([]byte, string, error)
}

func (m *mockReportService) Generate(ctx context.Context, req driving.ReportRequest) (*domain.Report, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &domain.Report{
		ID:        "report-1",
		Title:     req.Title,
		Sections:  req.Sections,
		Status:    domain.ReportPending,
		CreatedAt: time.Now(),
	}, nil
}

func (m *mockReportService) Get(ctx context.Context, id string) (*domain.Report, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockReportService) List(ctx context.Context) ([]domain.Report, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockReportService) Download(ctx context.Context, id string) ([]byte, string, error) {
	if m.downloadFunc != nil {
		return m.downloadFunc(ctx, id)
	}
	return nil, "", domain.ErrNotFound
}

func pendingDocument(id, filename string, size int64) *domain.Document {
	return &domain.Document{
		ID:               id,
		OriginalFilename: filename,
		FileType:         "txt",
		FileSize:         size,
		UploadDate:       time.Now(),
		Status:           domain.StatusPending,
	}
}

// serverFixture bundles the server under test with its mocks.
type serverFixture struct {
	docs    *mockDocumentService
	chat    *mockChatService
	reports *mockReportService
	handler http.Handler
}

func newServerFixture(opts ...Option) *serverFixture {
	f := &serverFixture{
		docs:    &mockDocumentService{},
		chat:    &mockChatService{},
		reports: &mockReportService{},
	}
	srv := NewServer(f.docs, f.chat, f.reports, logger.Discard(), opts...)
	f.handler = srv.Router()
	return f
}

func (f *serverFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}
