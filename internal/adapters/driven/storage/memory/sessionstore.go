package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
)

// DefaultSessionCap bounds how many sessions are retained.
const DefaultSessionCap = 256

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory, LRU-bounded implementation of
// driven.SessionStore. When the cap is reached, the least recently used
// session is evicted.
type SessionStore struct {
	mu       sync.Mutex
	cap      int
	sessions map[string]*list.Element
	order    *list.List // front = most recently used
}

type sessionEntry struct {
	id      string
	session domain.Session
}

// NewSessionStore creates a session store retaining at most cap
// sessions. A cap <= 0 uses DefaultSessionCap.
func NewSessionStore(cap int) *SessionStore {
	if cap <= 0 {
		cap = DefaultSessionCap
	}
	return &SessionStore{
		cap:      cap,
		sessions: make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get retrieves a session by ID and marks it recently used.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.order.MoveToFront(elem)

	entry := elem.Value.(*sessionEntry)
	cp := entry.session
	cp.Messages = append([]domain.Message(nil), entry.session.Messages...)
	return &cp, nil
}

// Save stores or updates a session, evicting the least recently used
// session if the cap is exceeded.
func (s *SessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	cp.Messages = append([]domain.Message(nil), session.Messages...)

	if elem, ok := s.sessions[session.ID]; ok {
		elem.Value.(*sessionEntry).session = cp
		s.order.MoveToFront(elem)
		return nil
	}

	elem := s.order.PushFront(&sessionEntry{id: session.ID, session: cp})
	s.sessions[session.ID] = elem

	if s.order.Len() > s.cap {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.sessions, oldest.Value.(*sessionEntry).id)
		}
	}
	return nil
}

// Delete removes a session. Deleting an unknown session is a no-op.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.sessions[id]; ok {
		s.order.Remove(elem)
		delete(s.sessions, id)
	}
	return nil
}

// Len returns the number of retained sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
