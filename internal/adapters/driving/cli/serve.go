package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meddocs-labs/meddocs/internal/adapters/driven/blob"
	geminicompletion "github.com/meddocs-labs/meddocs/internal/adapters/driven/completion/gemini"
	openaicompletion "github.com/meddocs-labs/meddocs/internal/adapters/driven/completion/openai"
	"github.com/meddocs-labs/meddocs/internal/adapters/driven/drive"
	ollamaembedding "github.com/meddocs-labs/meddocs/internal/adapters/driven/embedding/ollama"
	openaiembedding "github.com/meddocs-labs/meddocs/internal/adapters/driven/embedding/openai"
	"github.com/meddocs-labs/meddocs/internal/adapters/driven/extract"
	memindex "github.com/meddocs-labs/meddocs/internal/adapters/driven/index/memory"
	"github.com/meddocs-labs/meddocs/internal/adapters/driven/render"
	memstorage "github.com/meddocs-labs/meddocs/internal/adapters/driven/storage/memory"
	"github.com/meddocs-labs/meddocs/internal/adapters/driven/storage/sqlite"
	"github.com/meddocs-labs/meddocs/internal/adapters/driving/httpapi"
	"github.com/meddocs-labs/meddocs/internal/config"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
	"github.com/meddocs-labs/meddocs/internal/core/services"
	"github.com/meddocs-labs/meddocs/internal/logger"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backend server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Server.LogLevel)
	ctx := cmd.Context()

	docStore, reportStore, err := buildStores(cfg)
	if err != nil {
		return err
	}

	blobStore, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	completion, err := buildCompletion(cfg)
	if err != nil {
		return err
	}
	defer completion.Close()

	index := memindex.New()
	if err := rebuildIndex(ctx, docStore, index, log); err != nil {
		return fmt.Errorf("rebuilding vector index: %w", err)
	}

	extractor := extract.NewService()

	var chunkerOpts []services.ChunkerOption
	if cfg.Pipeline.ChunkSize > 0 {
		chunkerOpts = append(chunkerOpts, services.WithMaxChunkChars(cfg.Pipeline.ChunkSize))
	}
	if cfg.Pipeline.ChunkOverlap > 0 {
		chunkerOpts = append(chunkerOpts, services.WithOverlapChars(cfg.Pipeline.ChunkOverlap))
	}
	chunker := services.NewChunker(chunkerOpts...)

	var ingestOpts []services.IngestorOption
	if cfg.Pipeline.Workers > 0 {
		ingestOpts = append(ingestOpts, services.WithIngestWorkers(cfg.Pipeline.Workers))
	}
	if cfg.Pipeline.EmbedRetries > 0 {
		ingestOpts = append(ingestOpts, services.WithEmbedRetries(cfg.Pipeline.EmbedRetries))
	}
	ingestor := services.NewIngestor(docStore, blobStore, extractor, embedder, index, chunker, log, ingestOpts...)
	ingestor.Start(ctx)
	defer ingestor.Stop()

	var retrieverOpts []services.RetrieverOption
	if cfg.Chat.TopK > 0 {
		retrieverOpts = append(retrieverOpts, services.WithTopK(cfg.Chat.TopK))
	}
	if cfg.Chat.MinScore > 0 {
		retrieverOpts = append(retrieverOpts, services.WithMinScore(cfg.Chat.MinScore))
	}
	retriever := services.NewRetriever(embedder, index, docStore, log, retrieverOpts...)

	var conversationOpts []services.ConversationOption
	if cfg.Chat.HistoryWindow > 0 {
		conversationOpts = append(conversationOpts, services.WithHistoryWindow(cfg.Chat.HistoryWindow))
	}
	conversations := services.NewConversationManager(
		memstorage.NewSessionStore(cfg.Chat.SessionCap), conversationOpts...)

	var synthesizerOpts []services.SynthesizerOption
	if cfg.Chat.MaxTokens > 0 {
		synthesizerOpts = append(synthesizerOpts, services.WithMaxTokens(cfg.Chat.MaxTokens))
	}
	if cfg.Chat.Temperature > 0 {
		synthesizerOpts = append(synthesizerOpts, services.WithTemperature(cfg.Chat.Temperature))
	}
	chat := services.NewSynthesizer(retriever, conversations, completion, log, synthesizerOpts...)

	var documentOpts []services.DocumentOption
	if cfg.Pipeline.MaxUploadBytes > 0 {
		documentOpts = append(documentOpts, services.WithMaxUploadBytes(cfg.Pipeline.MaxUploadBytes))
	}
	if cfg.Drive.CredentialsFile != "" {
		remote, err := drive.NewService(ctx, drive.Config{
			CredentialsFile: cfg.Drive.CredentialsFile,
			FolderID:        cfg.Drive.FolderID,
		})
		if err != nil {
			return fmt.Errorf("configuring drive import: %w", err)
		}
		documentOpts = append(documentOpts, services.WithRemoteStorage(remote))
	}
	documents := services.NewDocumentManager(docStore, blobStore, index, ingestor, extractor, log, documentOpts...)

	reports := services.NewReportBuilder(reportStore, retriever, completion, render.NewMarkdown(), blobStore, log)
	defer reports.Wait()

	var serverOpts []httpapi.Option
	if cfg.Pipeline.MaxUploadBytes > 0 {
		serverOpts = append(serverOpts, httpapi.WithMaxUploadBytes(cfg.Pipeline.MaxUploadBytes))
	}
	api := httpapi.NewServer(documents, chat, reports, log, serverOpts...)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		log.Info("shutting down", "reason", "context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildStores selects the persistence backend.
func buildStores(cfg *config.Config) (driven.DocumentStore, driven.ReportStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memstorage.NewDocumentStore(), memstorage.NewReportStore(), nil
	case "sqlite":
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store.DocumentStore(), store.ReportStore(), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (driven.BlobStore, error) {
	switch cfg.Blob.Backend {
	case "local":
		return blob.NewLocalStore(cfg.Blob.Dir)
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  cfg.Blob.S3.Endpoint,
			AccessKey: cfg.Blob.S3.AccessKey,
			SecretKey: cfg.Blob.S3.SecretKey,
			Bucket:    cfg.Blob.S3.Bucket,
			UseSSL:    cfg.Blob.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
}

func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return openaiembedding.NewEmbeddingService(openaiembedding.Config{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
	case "ollama":
		return ollamaembedding.NewEmbeddingService(ollamaembedding.Config{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func buildCompletion(cfg *config.Config) (driven.CompletionService, error) {
	switch cfg.Completion.Provider {
	case "gemini":
		return geminicompletion.NewCompletionService(geminicompletion.Config{
			APIKey:  cfg.Completion.APIKey,
			BaseURL: cfg.Completion.BaseURL,
			Model:   cfg.Completion.Model,
		})
	case "openai":
		return openaicompletion.NewCompletionService(openaicompletion.Config{
			APIKey:  cfg.Completion.APIKey,
			BaseURL: cfg.Completion.BaseURL,
			Model:   cfg.Completion.Model,
		})
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Completion.Provider)
	}
}

// rebuildIndex reloads every embedded chunk into the in-memory vector
// index. The index is not persisted; the chunk store is the source of
// truth.
func rebuildIndex(ctx context.Context, docs driven.DocumentStore, index driven.VectorIndex, log *slog.Logger) error {
	chunks, err := docs.ListEmbeddedChunks(ctx)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		entry := driven.VectorEntry{
			ChunkID:       chunk.ID,
			DocumentID:    chunk.DocumentID,
			PageNumbers:   chunk.PageNumbers,
			SequenceIndex: chunk.SequenceIndex,
			Embedding:     chunk.Embedding,
		}
		if err := index.Insert(ctx, entry); err != nil {
			return err
		}
	}
	if len(chunks) > 0 {
		log.Info("vector index rebuilt", "entries", len(chunks))
	}
	return nil
}
