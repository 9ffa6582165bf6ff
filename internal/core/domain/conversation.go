package domain

import "time"

// Role identifies the author of a conversation message.
type Role string

// Message roles. Only user and assistant messages are stored in history;
// system instructions are injected at prompt-build time.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation points from an answer back to the document and pages that
// support it. Citations are derived from retrieved evidence and never
// persisted independently of a message.
type Citation struct {
	// DocumentID is the cited document. It must reference a document
	// that was completed at synthesis time.
	DocumentID string `json:"document_id"`

	// DocumentName is the original filename, for display.
	DocumentName string `json:"document_name"`

	// Pages are the cited page numbers, ascending.
	Pages []int `json:"pages"`

	// SourceURL is the remote-storage link, when the document was imported.
	SourceURL string `json:"source_url,omitempty"`
}

// Message is a single turn in a conversation session.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Session is an ordered multi-turn conversation addressed by an opaque id.
type Session struct {
	ID        string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tail returns the most recent n messages, oldest first. Truncation drops
// from the front only and never reorders.
func (s *Session) Tail(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
