package domain

import "time"

// ReportStatus tracks a report generation job.
type ReportStatus string

// Valid report states.
const (
	ReportPending   ReportStatus = "pending"
	ReportCompleted ReportStatus = "completed"
	ReportFailed    ReportStatus = "failed"
)

// Report is a generated document assembled from one synthesized, cited
// answer per requested section.
type Report struct {
	// ID is the unique identifier for the report job.
	ID string

	// Title is the report title.
	Title string

	// Sections are the requested section titles, in order. Never empty.
	Sections []string

	// DocumentIDs restricts retrieval to specific documents.
	// Nil means all completed documents.
	DocumentIDs []string

	// Status is the current job state.
	Status ReportStatus

	// FailureReason is set when Status is failed.
	FailureReason string

	// ArtifactKey locates the rendered report in the blob store,
	// set once Status is completed.
	ArtifactKey string

	// ArtifactType is the content type of the rendered artifact.
	ArtifactType string

	// CreatedAt is when the job was accepted.
	CreatedAt time.Time
}

// ReportSection is the generated content for one requested section.
type ReportSection struct {
	Title     string
	Content   string
	Citations []Citation
}
