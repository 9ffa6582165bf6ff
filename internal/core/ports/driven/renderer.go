package driven

import "github.com/meddocs-labs/meddocs/internal/core/domain"

// ReportRenderer turns generated report sections into a downloadable
// artifact.
type ReportRenderer interface {
	// Render produces the report artifact and its content type.
	Render(report *domain.Report, sections []domain.ReportSection) ([]byte, string, error)
}
