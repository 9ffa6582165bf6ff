package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

func TestMarkdown_Render(t *testing.T) {
	report := &domain.Report{
		Title:     "Treatment Overview",
		CreatedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	sections := []domain.ReportSection{
		{
			Title:   "Dosage",
			Content: "Take one tablet daily [S1].",
			Citations: []domain.Citation{
				{DocumentID: "doc-1", DocumentName: "leaflet.pdf", Pages: []int{2, 3}, SourceURL: "https://drive.example/leaflet"},
			},
		},
		{
			Title:   "Storage",
			Content: "No guidance found.",
		},
	}

	data, contentType, err := NewMarkdown().Render(report, sections)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeMarkdown, contentType)

	text := string(data)
	assert.Contains(t, text, "# Treatment Overview")
	assert.Contains(t, text, "## Dosage")
	assert.Contains(t, text, "Take one tablet daily [S1].")
	assert.Contains(t, text, "[leaflet.pdf](https://drive.example/leaflet), pp. 2, 3")
	assert.Contains(t, text, "## Storage")
	assert.NotContains(t, text, "Storage\n\nNo guidance found.\n\n**Sources:**")
}

func TestMarkdown_Render_SinglePageLabel(t *testing.T) {
	report := &domain.Report{Title: "T", CreatedAt: time.Now()}
	sections := []domain.ReportSection{
		{
			Title:   "S",
			Content: "c [S1]",
			Citations: []domain.Citation{
				{DocumentName: "doc.pdf", Pages: []int{7}},
			},
		},
	}

	data, _, err := NewMarkdown().Render(report, sections)
	require.NoError(t, err)
	assert.Contains(t, string(data), "doc.pdf, p. 7")
}

func TestMarkdown_Render_RequiresTitle(t *testing.T) {
	_, _, err := NewMarkdown().Render(&domain.Report{}, nil)
	assert.Error(t, err)
}
