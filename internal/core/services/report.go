package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driving"
)

// ReportBuilder generates reports asynchronously. Each requested section
// becomes a retrieval query over the scoped documents, and the resulting
// cited sections are rendered into a downloadable artifact.
type ReportBuilder struct {
	reports    driven.ReportStore
	retriever  *Retriever
	completion driven.CompletionService
	renderer   driven.ReportRenderer
	blobs      driven.BlobStore
	log        *slog.Logger

	maxTokens   int
	temperature float64

	wg sync.WaitGroup
}

var _ driving.ReportService = (*ReportBuilder)(nil)

// NewReportBuilder creates a ReportBuilder.
func NewReportBuilder(reports driven.ReportStore, retriever *Retriever, completion driven.CompletionService, renderer driven.ReportRenderer, blobs driven.BlobStore, log *slog.Logger) *ReportBuilder {
	return &ReportBuilder{
		reports:     reports,
		retriever:   retriever,
		completion:  completion,
		renderer:    renderer,
		blobs:       blobs,
		log:         log,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
}

// Generate accepts a report job and starts generation in the background.
func (b *ReportBuilder) Generate(ctx context.Context, req driving.ReportRequest) (*domain.Report, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: empty report title", domain.ErrInvalidInput)
	}
	if len(req.Sections) == 0 {
		return nil, fmt.Errorf("%w: no sections requested", domain.ErrInvalidInput)
	}
	for _, s := range req.Sections {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: empty section title", domain.ErrInvalidInput)
		}
	}

	report := &domain.Report{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Sections:    req.Sections,
		DocumentIDs: req.DocumentIDs,
		Status:      domain.ReportPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := b.reports.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("saving report job: %w", err)
	}

	b.wg.Add(1)
	go b.run(context.WithoutCancel(ctx), *report)

	return report, nil
}

// Wait blocks until all in-flight report jobs have finished. Used
// during shutdown.
func (b *ReportBuilder) Wait() {
	b.wg.Wait()
}

func (b *ReportBuilder) run(ctx context.Context, report domain.Report) {
	defer b.wg.Done()

	start := time.Now()
	sections, err := b.generateSections(ctx, &report)
	if err != nil {
		b.fail(ctx, &report, err)
		return
	}

	artifact, contentType, err := b.renderer.Render(&report, sections)
	if err != nil {
		b.fail(ctx, &report, fmt.Errorf("rendering report: %w", err))
		return
	}

	report.ArtifactKey = "reports/" + report.ID
	report.ArtifactType = contentType
	if err := b.blobs.Put(ctx, report.ArtifactKey, artifact, contentType); err != nil {
		b.fail(ctx, &report, fmt.Errorf("storing artifact: %w", err))
		return
	}

	report.Status = domain.ReportCompleted
	if err := b.reports.Save(ctx, &report); err != nil {
		b.log.Error("saving completed report", "report_id", report.ID, "error", err)
		return
	}
	b.log.Info("report generated",
		"report_id", report.ID,
		"title", report.Title,
		"sections", len(sections),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
}

func (b *ReportBuilder) generateSections(ctx context.Context, report *domain.Report) ([]domain.ReportSection, error) {
	sections := make([]domain.ReportSection, 0, len(report.Sections))

	for _, title := range report.Sections {
		query := fmt.Sprintf("Write the %q section of a report titled %q. Cover what the excerpts say that is relevant to this section.", title, report.Title)

		result, err := b.retriever.Retrieve(ctx, title, report.DocumentIDs)
		if err != nil {
			return nil, fmt.Errorf("retrieving evidence for section %q: %w", title, err)
		}

		content, err := b.completion.Complete(ctx, buildMessages(query, nil, result), driven.CompletionOptions{
			MaxTokens:   b.maxTokens,
			Temperature: b.temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: section %q: %v", domain.ErrCompletionService, title, err)
		}

		sections = append(sections, domain.ReportSection{
			Title:     title,
			Content:   content,
			Citations: parseCitations(content, result),
		})
	}
	return sections, nil
}

func (b *ReportBuilder) fail(ctx context.Context, report *domain.Report, cause error) {
	b.log.Error("report generation failed", "report_id", report.ID, "error", cause)
	report.Status = domain.ReportFailed
	report.FailureReason = cause.Error()
	if err := b.reports.Save(ctx, report); err != nil {
		b.log.Error("saving failed report", "report_id", report.ID, "error", err)
	}
}

// Get returns a report job by ID.
func (b *ReportBuilder) Get(ctx context.Context, id string) (*domain.Report, error) {
	return b.reports.Get(ctx, id)
}

// List returns all report jobs, newest first.
func (b *ReportBuilder) List(ctx context.Context) ([]domain.Report, error) {
	return b.reports.List(ctx)
}

// Download returns the rendered artifact for a completed report.
func (b *ReportBuilder) Download(ctx context.Context, id string) ([]byte, string, error) {
	report, err := b.reports.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if report.Status != domain.ReportCompleted {
		return nil, "", fmt.Errorf("%w: report is %s", domain.ErrInvalidInput, report.Status)
	}

	data, err := b.blobs.Get(ctx, report.ArtifactKey)
	if err != nil {
		return nil, "", fmt.Errorf("loading artifact: %w", err)
	}
	return data, report.ArtifactType, nil
}
