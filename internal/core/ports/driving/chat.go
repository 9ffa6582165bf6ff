package driving

import (
	"context"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

// ChatResult is a synthesized, cited answer for one conversation turn.
type ChatResult struct {
	// Content is the answer text.
	Content string `json:"content"`

	// SessionID identifies the conversation; echoed back so the caller
	// can continue it, including when a fresh session was created.
	SessionID string `json:"session_id"`

	// Citations trace the answer back to source documents and pages.
	// Empty when no grounding evidence was retrieved.
	Citations []domain.Citation `json:"citations"`
}

// ChatService answers a user message from the indexed corpus, maintaining
// per-session conversational context.
type ChatService interface {
	// Chat runs one conversation turn. An empty sessionID creates a
	// fresh session.
	Chat(ctx context.Context, message, sessionID string) (*ChatResult, error)
}
