package driven

import (
	"context"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

// ReportStore persists report generation jobs.
type ReportStore interface {
	// Save stores or updates a report.
	Save(ctx context.Context, report *domain.Report) error

	// Get retrieves a report by ID.
	Get(ctx context.Context, id string) (*domain.Report, error)

	// List returns all reports, newest first.
	List(ctx context.Context) ([]domain.Report, error)
}
