package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// systemPrompt frames every synthesis request. Evidence tags are the
// contract: the model may only cite sources it was actually given.
const systemPrompt = `You are a careful assistant that answers questions about a private document collection.

Rules:
- Answer only from the provided source excerpts and the conversation so far.
- Cite every claim with the tag of the excerpt that supports it, e.g. [S1] or [S2].
- Combine multiple tags when several excerpts support one claim, e.g. [S1][S3].
- If the excerpts do not contain the answer, say so plainly. Do not invent sources or tags.`

// noEvidencePrompt replaces the excerpt block when retrieval produced
// nothing usable.
const noEvidencePrompt = `You are a careful assistant that answers questions about a private document collection.

No matching excerpts were found for this question. Say that the document collection contains nothing relevant, and offer what general guidance you can while making clear it is not grounded in the collection. Do not fabricate citations.`

// citationTag matches evidence tags like [S1] in a synthesized answer.
var citationTag = regexp.MustCompile(`\[S(\d+)\]`)

// buildEvidenceBlock renders the retrieved evidence as a tagged excerpt
// list. Tags are 1-based and follow evidence order.
func buildEvidenceBlock(evidence []domain.EvidenceItem, docs map[string]domain.Document) string {
	var b strings.Builder
	b.WriteString("Source excerpts:\n\n")
	for i, ev := range evidence {
		name := ev.DocumentID
		if doc, ok := docs[ev.DocumentID]; ok {
			name = doc.OriginalFilename
		}
		fmt.Fprintf(&b, "[S%d] %s%s\n%s\n\n", i+1, name, formatPages(ev.Pages), ev.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPages(pages []int) string {
	if len(pages) == 0 {
		return ""
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	label := "page"
	if len(pages) > 1 {
		label = "pages"
	}
	return fmt.Sprintf(" (%s %s)", label, strings.Join(parts, ", "))
}

// buildMessages assembles the completion request for one turn: system
// framing, evidence, bounded history, then the current question.
func buildMessages(question string, history []domain.Message, result *RetrievalResult) []driven.ChatMessage {
	var messages []driven.ChatMessage

	if result.Empty() {
		messages = append(messages, driven.ChatMessage{Role: "system", Content: noEvidencePrompt})
	} else {
		content := systemPrompt + "\n\n" + buildEvidenceBlock(result.Evidence, result.Documents)
		messages = append(messages, driven.ChatMessage{Role: "system", Content: content})
	}

	for _, msg := range history {
		messages = append(messages, driven.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	messages = append(messages, driven.ChatMessage{Role: "user", Content: question})
	return messages
}

// parseCitations resolves the evidence tags present in answer into
// per-document citations. Tags that do not map to a provided excerpt are
// ignored. Pages are unioned per document and sorted; citation order
// follows first mention in the answer.
func parseCitations(answer string, result *RetrievalResult) []domain.Citation {
	matches := citationTag.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return nil
	}

	type docRef struct {
		order int
		pages map[int]bool
	}
	refs := make(map[string]*docRef)
	order := 0

	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > len(result.Evidence) {
			continue
		}
		ev := result.Evidence[idx-1]

		ref, ok := refs[ev.DocumentID]
		if !ok {
			ref = &docRef{order: order, pages: make(map[int]bool)}
			refs[ev.DocumentID] = ref
			order++
		}
		for _, p := range ev.Pages {
			ref.pages[p] = true
		}
	}

	citations := make([]domain.Citation, 0, len(refs))
	for docID, ref := range refs {
		pages := make([]int, 0, len(ref.pages))
		for p := range ref.pages {
			pages = append(pages, p)
		}
		sort.Ints(pages)

		c := domain.Citation{DocumentID: docID, Pages: pages}
		if doc, ok := result.Documents[docID]; ok {
			c.DocumentName = doc.OriginalFilename
			c.SourceURL = doc.SourceURL
		}
		citations = append(citations, c)
	}

	sort.Slice(citations, func(i, j int) bool {
		return refs[citations[i].DocumentID].order < refs[citations[j].DocumentID].order
	})
	return citations
}
