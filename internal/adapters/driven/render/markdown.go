// Package render turns generated report sections into downloadable
// artifacts.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// Ensure Markdown implements the interface.
var _ driven.ReportRenderer = (*Markdown)(nil)

// ContentTypeMarkdown is the content type of rendered markdown reports.
const ContentTypeMarkdown = "text/markdown"

// Markdown renders reports as a markdown document: title, one heading
// per section, and a sources list under each cited section.
type Markdown struct{}

// NewMarkdown creates a markdown renderer.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// Render produces the report artifact and its content type.
func (m *Markdown) Render(report *domain.Report, sections []domain.ReportSection) ([]byte, string, error) {
	if report.Title == "" {
		return nil, "", fmt.Errorf("report has no title")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", report.Title)
	fmt.Fprintf(&b, "\n_Generated %s_\n", report.CreatedAt.Format("2006-01-02 15:04 MST"))

	for _, section := range sections {
		fmt.Fprintf(&b, "\n## %s\n\n", section.Title)
		b.WriteString(strings.TrimSpace(section.Content))
		b.WriteString("\n")

		if len(section.Citations) > 0 {
			b.WriteString("\n**Sources:**\n\n")
			for _, c := range section.Citations {
				b.WriteString("- ")
				if c.SourceURL != "" {
					fmt.Fprintf(&b, "[%s](%s)", c.DocumentName, c.SourceURL)
				} else {
					b.WriteString(c.DocumentName)
				}
				if len(c.Pages) > 0 {
					fmt.Fprintf(&b, ", %s", pageLabel(c.Pages))
				}
				b.WriteString("\n")
			}
		}
	}

	return []byte(b.String()), ContentTypeMarkdown, nil
}

func pageLabel(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	if len(pages) == 1 {
		return "p. " + parts[0]
	}
	return "pp. " + strings.Join(parts, ", ")
}
