package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/meddocs-labs/meddocs/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// document and report store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.meddocs/data/meddocs.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".meddocs", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "meddocs.db")

	// WAL mode for better concurrency between the HTTP handlers and the
	// ingestion workers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ReportStore returns a ReportStore interface backed by this store.
func (s *Store) ReportStore() driven.ReportStore {
	return &reportStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, original_filename, file_type, file_size, upload_date, status, failure_reason, source_url, remote_file_id, blob_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			original_filename = excluded.original_filename,
			file_type = excluded.file_type,
			file_size = excluded.file_size,
			upload_date = excluded.upload_date,
			status = excluded.status,
			failure_reason = excluded.failure_reason,
			source_url = excluded.source_url,
			remote_file_id = excluded.remote_file_id,
			blob_key = excluded.blob_key
	`, doc.ID, doc.OriginalFilename, doc.FileType, doc.FileSize, doc.UploadDate,
		string(doc.Status), nullString(doc.FailureReason), nullString(doc.SourceURL),
		nullString(doc.RemoteFileID), nullString(doc.BlobKey))

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

const documentColumns = "id, original_filename, file_type, file_size, upload_date, status, failure_reason, source_url, remote_file_id, blob_key"

func scanDocument(scan func(dest ...any) error) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var failureReason, sourceURL, remoteFileID, blobKey sql.NullString
	var uploadDate sql.NullTime

	if err := scan(&doc.ID, &doc.OriginalFilename, &doc.FileType, &doc.FileSize,
		&uploadDate, &status, &failureReason, &sourceURL, &remoteFileID, &blobKey); err != nil {
		return nil, err
	}

	doc.Status = domain.ProcessingStatus(status)
	doc.FailureReason = failureReason.String
	doc.SourceURL = sourceURL.String
	doc.RemoteFileID = remoteFileID.String
	doc.BlobKey = blobKey.String
	if uploadDate.Valid {
		doc.UploadDate = uploadDate.Time
	}
	return &doc, nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)

	doc, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY upload_date DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// UpdateStatus transitions a document's ingestion status.
func (s *documentStore) UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, reason string) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, failure_reason = ? WHERE id = ?",
		string(status), nullString(reason), id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document; chunks cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveChunks stores the chunks for a document, replacing any previous set.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	docID := chunks[0].DocumentID
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", docID); err != nil {
		return fmt.Errorf("clearing previous chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, page_numbers, sequence_index, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		pagesJSON, err := json.Marshal(chunk.PageNumbers)
		if err != nil {
			return fmt.Errorf("marshalling page numbers: %w", err)
		}

		var embeddingBlob []byte
		if len(chunk.Embedding) > 0 {
			embeddingBlob = float32SliceToBytes(chunk.Embedding)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Text,
			string(pagesJSON), chunk.SequenceIndex, embeddingBlob); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

const chunkColumns = "id, document_id, content, page_numbers, sequence_index, embedding"

func scanChunk(scan func(dest ...any) error) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var pagesJSON string
	var embeddingBlob []byte

	if err := scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &pagesJSON,
		&chunk.SequenceIndex, &embeddingBlob); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(pagesJSON), &chunk.PageNumbers); err != nil {
		return nil, fmt.Errorf("unmarshaling page numbers: %w", err)
	}
	if len(embeddingBlob) > 0 {
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	}
	return &chunk, nil
}

// GetChunks retrieves a document's chunks ordered by sequence index.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? ORDER BY sequence_index", documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// GetChunk retrieves a specific chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)

	chunk, err := scanChunk(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return chunk, nil
}

// ListEmbeddedChunks returns every chunk that carries an embedding.
func (s *documentStore) ListEmbeddedChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE embedding IS NOT NULL ORDER BY document_id, sequence_index")
	if err != nil {
		return nil, fmt.Errorf("querying embedded chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

func collectChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ==================== Report Store ====================

// reportStore implements driven.ReportStore.
type reportStore struct {
	store *Store
}

var _ driven.ReportStore = (*reportStore)(nil)

// Save stores or updates a report.
func (s *reportStore) Save(ctx context.Context, report *domain.Report) error {
	sectionsJSON, err := json.Marshal(report.Sections)
	if err != nil {
		return fmt.Errorf("marshalling sections: %w", err)
	}
	docIDsJSON, err := json.Marshal(report.DocumentIDs)
	if err != nil {
		return fmt.Errorf("marshalling document ids: %w", err)
	}

	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO reports (id, title, sections, document_ids, status, failure_reason, artifact_key, artifact_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			sections = excluded.sections,
			document_ids = excluded.document_ids,
			status = excluded.status,
			failure_reason = excluded.failure_reason,
			artifact_key = excluded.artifact_key,
			artifact_type = excluded.artifact_type
	`, report.ID, report.Title, string(sectionsJSON), string(docIDsJSON),
		string(report.Status), nullString(report.FailureReason),
		nullString(report.ArtifactKey), nullString(report.ArtifactType), report.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

const reportColumns = "id, title, sections, document_ids, status, failure_reason, artifact_key, artifact_type, created_at"

func scanReport(scan func(dest ...any) error) (*domain.Report, error) {
	var report domain.Report
	var sectionsJSON string
	var docIDsJSON, failureReason, artifactKey, artifactType sql.NullString
	var status string
	var createdAt sql.NullTime

	if err := scan(&report.ID, &report.Title, &sectionsJSON, &docIDsJSON,
		&status, &failureReason, &artifactKey, &artifactType, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(sectionsJSON), &report.Sections); err != nil {
		return nil, fmt.Errorf("unmarshaling sections: %w", err)
	}
	if docIDsJSON.Valid && docIDsJSON.String != "null" {
		if err := json.Unmarshal([]byte(docIDsJSON.String), &report.DocumentIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling document ids: %w", err)
		}
	}

	report.Status = domain.ReportStatus(status)
	report.FailureReason = failureReason.String
	report.ArtifactKey = artifactKey.String
	report.ArtifactType = artifactType.String
	if createdAt.Valid {
		report.CreatedAt = createdAt.Time
	}
	return &report, nil
}

// Get retrieves a report by ID.
func (s *reportStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = ?", id)

	report, err := scanReport(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning report: %w", err)
	}
	return report, nil
}

// List returns all reports, newest first.
func (s *reportStore) List(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+reportColumns+" FROM reports ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanReport(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return reports, nil
}

// ==================== Helpers ====================

// nullString returns a sql.NullString that is NULL for empty strings.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	data := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	return data
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
