package driving

import (
	"context"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

// ReportRequest describes a report generation job. Every recognized
// field and its effect is listed here; there is no dynamic option bag.
type ReportRequest struct {
	// Title is the report title.
	Title string `json:"title"`

	// Sections are the section titles to generate, in order.
	// Must be non-empty.
	Sections []string `json:"sections"`

	// DocumentIDs restricts retrieval to specific documents.
	// Nil means all completed documents.
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// ReportService generates and serves reports. Each section is a
// synthesized, cited answer to the section title as an implicit query.
type ReportService interface {
	// Generate accepts a job and returns it in pending state.
	// Generation proceeds asynchronously; poll Get for status.
	Generate(ctx context.Context, req ReportRequest) (*domain.Report, error)

	// Get returns a report job by ID.
	Get(ctx context.Context, id string) (*domain.Report, error)

	// List returns all report jobs, newest first.
	List(ctx context.Context) ([]domain.Report, error)

	// Download returns the rendered artifact and its content type for a
	// completed report.
	Download(ctx context.Context, id string) ([]byte, string, error)
}
