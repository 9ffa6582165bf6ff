package services

import (
	"context"
	"sort"
	"sync"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// Hand-written mocks for the driven ports. Function fields override
// behavior per test; unset fields fall back to a usable in-memory default.

type mockEmbedder struct {
	embedFunc      func(ctx context.Context, text string) ([]float32, error)
	embedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	dimensions     int
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedBatchFunc != nil {
		return m.embedBatchFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int {
	if m.dimensions > 0 {
		return m.dimensions
	}
	return 3
}

func (m *mockEmbedder) ModelName() string { return "mock-embedder" }
func (m *mockEmbedder) Close() error      { return nil }

type mockVectorIndex struct {
	mu      sync.Mutex
	entries map[string]driven.VectorEntry

	insertFunc func(ctx context.Context, entry driven.VectorEntry) error
	queryFunc  func(ctx context.Context, vector []float32, k int, filter *driven.QueryFilter) ([]driven.VectorHit, error)
	deleteFunc func(ctx context.Context, documentID string) error
}

var _ driven.VectorIndex = (*mockVectorIndex)(nil)

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{entries: make(map[string]driven.VectorEntry)}
}

func (m *mockVectorIndex) Insert(ctx context.Context, entry driven.VectorEntry) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ChunkID] = entry
	return nil
}

func (m *mockVectorIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, documentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if e.DocumentID == documentID {
			delete(m.entries, id)
		}
	}
	return nil
}

func (m *mockVectorIndex) Query(ctx context.Context, vector []float32, k int, filter *driven.QueryFilter) ([]driven.VectorHit, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, vector, k, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []driven.VectorHit
	for _, e := range m.entries {
		if filter != nil && len(filter.DocumentIDs) > 0 {
			ok := false
			for _, id := range filter.DocumentIDs {
				if id == e.DocumentID {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:       e.ChunkID,
			DocumentID:    e.DocumentID,
			PageNumbers:   e.PageNumbers,
			SequenceIndex: e.SequenceIndex,
			Score:         1.0,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].SequenceIndex != hits[j].SequenceIndex {
			return hits[i].SequenceIndex < hits[j].SequenceIndex
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *mockVectorIndex) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type mockDocStore struct {
	mu     sync.Mutex
	docs   map[string]domain.Document
	chunks map[string]domain.Chunk

	getDocumentFunc  func(ctx context.Context, id string) (*domain.Document, error)
	getChunkFunc     func(ctx context.Context, id string) (*domain.Chunk, error)
	saveChunksFunc   func(ctx context.Context, chunks []domain.Chunk) error
	updateStatusFunc func(ctx context.Context, id string, status domain.ProcessingStatus, reason string) error
}

var _ driven.DocumentStore = (*mockDocStore)(nil)

func newMockDocStore() *mockDocStore {
	return &mockDocStore{
		docs:   make(map[string]domain.Document),
		chunks: make(map[string]domain.Chunk),
	}
}

func (m *mockDocStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *mockDocStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	if m.getDocumentFunc != nil {
		return m.getDocumentFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockDocStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out, nil
}

func (m *mockDocStore) UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, reason string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.FailureReason = reason
	m.docs[id] = doc
	return nil
}

func (m *mockDocStore) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	for cid, c := range m.chunks {
		if c.DocumentID == id {
			delete(m.chunks, cid)
		}
	}
	return nil
}

func (m *mockDocStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if m.saveChunksFunc != nil {
		return m.saveChunksFunc(ctx, chunks)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *mockDocStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceIndex < out[j].SequenceIndex })
	return out, nil
}

func (m *mockDocStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	if m.getChunkFunc != nil {
		return m.getChunkFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *mockDocStore) ListEmbeddedChunks(ctx context.Context) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for _, c := range m.chunks {
		if c.Embedding != nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockCompletion struct {
	completeFunc func(ctx context.Context, messages []driven.ChatMessage, opts driven.CompletionOptions) (string, error)
}

var _ driven.CompletionService = (*mockCompletion)(nil)

func (m *mockCompletion) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.CompletionOptions) (string, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, messages, opts)
	}
	return "mock answer", nil
}

func (m *mockCompletion) ModelName() string { return "mock-completion" }
func (m *mockCompletion) Close() error      { return nil }

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session

	getFunc  func(ctx context.Context, id string) (*domain.Session, error)
	saveFunc func(ctx context.Context, session *domain.Session) error
}

var _ driven.SessionStore = (*mockSessionStore)(nil)

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	cp.Messages = append([]domain.Message(nil), s.Messages...)
	return &cp, nil
}

func (m *mockSessionStore) Save(ctx context.Context, session *domain.Session) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	cp.Messages = append([]domain.Message(nil), session.Messages...)
	m.sessions[session.ID] = &cp
	return nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type mockExtractor struct {
	extractFunc  func(ctx context.Context, data []byte, fileType string) ([]domain.PageText, error)
	supportsFunc func(fileType string) bool
}

var _ driven.Extractor = (*mockExtractor)(nil)

func (m *mockExtractor) Extract(ctx context.Context, data []byte, fileType string) ([]domain.PageText, error) {
	if m.extractFunc != nil {
		return m.extractFunc(ctx, data, fileType)
	}
	return []domain.PageText{{Page: 1, Text: string(data)}}, nil
}

func (m *mockExtractor) Supports(fileType string) bool {
	if m.supportsFunc != nil {
		return m.supportsFunc(fileType)
	}
	return fileType == "pdf" || fileType == "txt" || fileType == "md"
}

type mockBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putFunc func(ctx context.Context, key string, data []byte, contentType string) error
}

var _ driven.BlobStore = (*mockBlobStore)(nil)

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (m *mockBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.putFunc != nil {
		return m.putFunc(ctx, key, data, contentType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *mockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

type mockReportStore struct {
	mu      sync.Mutex
	reports map[string]domain.Report
}

var _ driven.ReportStore = (*mockReportStore)(nil)

func newMockReportStore() *mockReportStore {
	return &mockReportStore{reports: make(map[string]domain.Report)}
}

func (m *mockReportStore) Save(ctx context.Context, report *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.ID] = *report
	return nil
}

func (m *mockReportStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockReportStore) List(ctx context.Context) ([]domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type mockRemoteStorage struct {
	listFunc     func(ctx context.Context) ([]driven.RemoteFile, error)
	downloadFunc func(ctx context.Context, fileID string) (*driven.RemoteFile, []byte, error)
}

var _ driven.RemoteStorage = (*mockRemoteStorage)(nil)

func (m *mockRemoteStorage) ListFiles(ctx context.Context) ([]driven.RemoteFile, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockRemoteStorage) Download(ctx context.Context, fileID string) (*driven.RemoteFile, []byte, error) {
	if m.downloadFunc != nil {
		return m.downloadFunc(ctx, fileID)
	}
	return nil, nil, domain.ErrNotFound
}

type mockRenderer struct {
	renderFunc func(report *domain.Report, sections []domain.ReportSection) ([]byte, string, error)
}

var _ driven.ReportRenderer = (*mockRenderer)(nil)

func (m *mockRenderer) Render(report *domain.Report, sections []domain.ReportSection) ([]byte, string, error) {
	if m.renderFunc != nil {
		return m.renderFunc(report, sections)
	}
	return []byte("# " + report.Title), "text/markdown", nil
}
