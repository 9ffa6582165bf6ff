package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// Ingestion pipeline defaults.
const (
	DefaultIngestWorkers = 4
	DefaultEmbedRetries  = 3

	ingestQueueSize = 64
	embedBatchSize  = 16
)

// Ingestor runs the asynchronous ingestion pipeline: extract, chunk,
// embed, persist, index. Jobs are document IDs; a fixed worker pool
// drains the queue so uploads return immediately.
type Ingestor struct {
	docs      driven.DocumentStore
	blobs     driven.BlobStore
	extractor driven.Extractor
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	chunker   *Chunker
	limiter   *rate.Limiter
	log       *slog.Logger

	workers      int
	retries      int
	retryBackoff time.Duration

	jobs chan string
	wg   sync.WaitGroup
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithIngestWorkers sets the worker pool size.
func WithIngestWorkers(n int) IngestorOption {
	return func(i *Ingestor) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithEmbedRetries sets how many attempts each embedding batch gets.
func WithEmbedRetries(n int) IngestorOption {
	return func(i *Ingestor) {
		if n > 0 {
			i.retries = n
		}
	}
}

// WithEmbedRateLimit throttles embedding calls across all workers.
func WithEmbedRateLimit(limiter *rate.Limiter) IngestorOption {
	return func(i *Ingestor) {
		if limiter != nil {
			i.limiter = limiter
		}
	}
}

// NewIngestor creates an Ingestor. Call Start before enqueuing work.
func NewIngestor(docs driven.DocumentStore, blobs driven.BlobStore, extractor driven.Extractor, embedder driven.EmbeddingService, index driven.VectorIndex, chunker *Chunker, log *slog.Logger, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		docs:         docs,
		blobs:        blobs,
		extractor:    extractor,
		embedder:     embedder,
		index:        index,
		chunker:      chunker,
		limiter:      rate.NewLimiter(rate.Limit(5), 5),
		log:          log,
		workers:      DefaultIngestWorkers,
		retries:      DefaultEmbedRetries,
		retryBackoff: time.Second,
		jobs:         make(chan string, ingestQueueSize),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Start launches the worker pool. Workers exit when Stop is called or
// ctx is cancelled.
func (i *Ingestor) Start(ctx context.Context) {
	for w := 0; w < i.workers; w++ {
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case docID, ok := <-i.jobs:
					if !ok {
						return
					}
					i.process(ctx, docID)
				}
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (i *Ingestor) Stop() {
	close(i.jobs)
	i.wg.Wait()
}

// Enqueue schedules a document for ingestion.
func (i *Ingestor) Enqueue(ctx context.Context, documentID string) error {
	select {
	case i.jobs <- documentID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Ingestor) process(ctx context.Context, docID string) {
	doc, err := i.docs.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted while queued.
			return
		}
		i.log.Error("loading queued document", "document_id", docID, "error", err)
		return
	}
	if doc.Status != domain.StatusPending {
		i.log.Warn("skipping document not in pending state", "document_id", docID, "status", doc.Status)
		return
	}

	if err := i.docs.UpdateStatus(ctx, docID, domain.StatusProcessing, ""); err != nil {
		i.log.Error("marking document processing", "document_id", docID, "error", err)
		return
	}

	start := time.Now()
	if err := i.ingest(ctx, doc); err != nil {
		i.fail(ctx, docID, err)
		return
	}

	if err := i.docs.UpdateStatus(ctx, docID, domain.StatusCompleted, ""); err != nil {
		i.log.Error("marking document completed", "document_id", docID, "error", err)
		return
	}
	i.log.Info("document ingested",
		"document_id", docID,
		"filename", doc.OriginalFilename,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
}

func (i *Ingestor) ingest(ctx context.Context, doc *domain.Document) error {
	data, err := i.blobs.Get(ctx, doc.BlobKey)
	if err != nil {
		return fmt.Errorf("loading original: %w", err)
	}

	pages, err := i.extractor.Extract(ctx, data, doc.FileType)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	text, boundaries := flattenPages(pages)
	chunks := i.chunker.Chunk(text, boundaries)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: document has no extractable text", domain.ErrExtraction)
	}

	for idx := range chunks {
		chunks[idx].ID = uuid.NewString()
		chunks[idx].DocumentID = doc.ID
	}

	if err := i.embedChunks(ctx, chunks); err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	if err := i.docs.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}

	for _, c := range chunks {
		entry := driven.VectorEntry{
			ChunkID:       c.ID,
			DocumentID:    c.DocumentID,
			PageNumbers:   c.PageNumbers,
			SequenceIndex: c.SequenceIndex,
			Embedding:     c.Embedding,
		}
		if err := i.index.Insert(ctx, entry); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", c.ID, err)
		}
	}

	// The document may have been deleted mid-flight; its index entries
	// must not outlive it.
	if _, err := i.docs.GetDocument(ctx, doc.ID); errors.Is(err, domain.ErrNotFound) {
		if derr := i.index.DeleteByDocument(ctx, doc.ID); derr != nil {
			i.log.Error("removing index entries for deleted document", "document_id", doc.ID, "error", derr)
		}
		return fmt.Errorf("document deleted during ingestion")
	}

	return nil
}

// embedChunks fills in chunk embeddings batch by batch, retrying each
// batch with exponential backoff.
func (i *Ingestor) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	for offset := 0; offset < len(chunks); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		vectors, err := i.embedBatchWithRetry(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrEmbeddingService, len(vectors), len(batch))
		}
		for j := range batch {
			batch[j].Embedding = vectors[j]
		}
	}
	return nil
}

func (i *Ingestor) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	backoff := i.retryBackoff

	for attempt := 1; attempt <= i.retries; attempt++ {
		if err := i.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := i.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		i.log.Warn("embedding batch failed", "attempt", attempt, "error", err)

		if attempt < i.retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingService, lastErr)
}

func (i *Ingestor) fail(ctx context.Context, docID string, cause error) {
	i.log.Error("document ingestion failed", "document_id", docID, "error", cause)
	if err := i.docs.UpdateStatus(ctx, docID, domain.StatusFailed, cause.Error()); err != nil {
		i.log.Error("marking document failed", "document_id", docID, "error", err)
	}
}

// flattenPages joins page texts into one string and records where each
// page starts, so chunk ranges can be mapped back to pages.
func flattenPages(pages []domain.PageText) (string, []domain.PageBoundary) {
	var b strings.Builder
	var boundaries []domain.PageBoundary

	for idx, p := range pages {
		if idx > 0 {
			b.WriteString("\n\n")
		}
		boundaries = append(boundaries, domain.PageBoundary{StartOffset: b.Len(), Page: p.Page})
		b.WriteString(p.Text)
	}
	return b.String(), boundaries
}
