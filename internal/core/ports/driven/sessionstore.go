package driven

import (
	"context"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

// SessionStore persists conversation sessions keyed by session id.
// Implementations bound retention (e.g. LRU with a cap) rather than
// retaining sessions indefinitely.
type SessionStore interface {
	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Save stores or updates a session.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error
}
