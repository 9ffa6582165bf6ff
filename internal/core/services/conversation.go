package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// DefaultHistoryWindow is how many trailing messages of a session are
// fed back into answer synthesis.
const DefaultHistoryWindow = 6

// ConversationManager owns session lifecycle and turn ordering. Turns
// within one session are serialized: a second message for a session that
// already has a turn in flight waits for the first to commit. Turns in
// different sessions proceed concurrently.
type ConversationManager struct {
	store  driven.SessionStore
	window int

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a turn mutex plus the number of turns holding or
// waiting on it. The map entry is dropped when the count reaches zero,
// keeping the lock map bounded by in-flight turns rather than by every
// session id ever seen.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// ConversationOption configures a ConversationManager.
type ConversationOption func(*ConversationManager)

// WithHistoryWindow sets the number of trailing messages used as context.
func WithHistoryWindow(n int) ConversationOption {
	return func(m *ConversationManager) {
		if n > 0 {
			m.window = n
		}
	}
}

// NewConversationManager creates a ConversationManager over the given
// session store.
func NewConversationManager(store driven.SessionStore, opts ...ConversationOption) *ConversationManager {
	m := &ConversationManager{
		store:  store,
		window: DefaultHistoryWindow,
		locks:  make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BeginTurn resolves the session for a turn and acquires its turn lock.
// An empty sessionID starts a fresh session; an unknown sessionID is
// treated the same, keeping the caller's id. The returned release
// function must be called once the turn has committed or failed.
func (m *ConversationManager) BeginTurn(ctx context.Context, sessionID string) (*domain.Session, func(), error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	release := m.lockSession(sessionID)

	session, err := m.store.Get(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now().UTC()
		session = &domain.Session{ID: sessionID, CreatedAt: now, UpdatedAt: now}
		if err := m.store.Save(ctx, session); err != nil {
			release()
			return nil, nil, fmt.Errorf("creating session %s: %w", sessionID, err)
		}
	case err != nil:
		release()
		return nil, nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	return session, release, nil
}

// History returns the trailing messages of the session used as
// conversational context for the next turn.
func (m *ConversationManager) History(session *domain.Session) []domain.Message {
	return session.Tail(m.window)
}

// CommitTurn appends the user message and the assistant reply to the
// session as one unit and persists it. A failed turn commits nothing.
func (m *ConversationManager) CommitTurn(ctx context.Context, session *domain.Session, user, assistant domain.Message) error {
	session.Messages = append(session.Messages, user, assistant)
	session.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(ctx, session); err != nil {
		session.Messages = session.Messages[:len(session.Messages)-2]
		return fmt.Errorf("saving session %s: %w", session.ID, err)
	}
	return nil
}

func (m *ConversationManager) lockSession(id string) func() {
	m.mu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sessionLock{}
		m.locks[id] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		m.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
