package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

func TestConversationManager_BeginTurn_CreatesFreshSession(t *testing.T) {
	m := NewConversationManager(newMockSessionStore())

	session, release, err := m.BeginTurn(context.Background(), "")
	require.NoError(t, err)
	defer release()

	assert.NotEmpty(t, session.ID)
	assert.Empty(t, session.Messages)
}

func TestConversationManager_BeginTurn_UnknownIDKeepsCallerID(t *testing.T) {
	m := NewConversationManager(newMockSessionStore())

	session, release, err := m.BeginTurn(context.Background(), "client-chosen")
	require.NoError(t, err)
	defer release()

	assert.Equal(t, "client-chosen", session.ID)
}

func TestConversationManager_BeginTurn_LoadsExistingSession(t *testing.T) {
	ctx := context.Background()
	store := newMockSessionStore()
	m := NewConversationManager(store)

	first, release, err := m.BeginTurn(ctx, "")
	require.NoError(t, err)
	require.NoError(t, m.CommitTurn(ctx, first,
		domain.Message{Role: domain.RoleUser, Content: "hello"},
		domain.Message{Role: domain.RoleAssistant, Content: "hi"},
	))
	release()

	second, release, err := m.BeginTurn(ctx, first.ID)
	require.NoError(t, err)
	defer release()

	require.Len(t, second.Messages, 2)
	assert.Equal(t, "hello", second.Messages[0].Content)
}

func TestConversationManager_History_BoundedWindow(t *testing.T) {
	m := NewConversationManager(newMockSessionStore(), WithHistoryWindow(4))

	session := &domain.Session{ID: "s"}
	for i := 0; i < 10; i++ {
		session.Messages = append(session.Messages, domain.Message{
			Role: domain.RoleUser, Content: string(rune('a' + i)),
		})
	}

	history := m.History(session)
	require.Len(t, history, 4)
	assert.Equal(t, "g", history[0].Content)
	assert.Equal(t, "j", history[3].Content)
}

func TestConversationManager_CommitTurn_FailedSaveCommitsNothing(t *testing.T) {
	ctx := context.Background()
	store := newMockSessionStore()
	m := NewConversationManager(store)

	session, release, err := m.BeginTurn(ctx, "")
	require.NoError(t, err)
	release()

	store.saveFunc = func(ctx context.Context, s *domain.Session) error {
		return assert.AnError
	}

	err = m.CommitTurn(ctx, session,
		domain.Message{Role: domain.RoleUser, Content: "q"},
		domain.Message{Role: domain.RoleAssistant, Content: "a"},
	)
	require.Error(t, err)
	assert.Empty(t, session.Messages)
}

func TestConversationManager_ReleaseDropsIdleSessionLocks(t *testing.T) {
	ctx := context.Background()
	m := NewConversationManager(newMockSessionStore())

	for i := 0; i < 1000; i++ {
		session, release, err := m.BeginTurn(ctx, "")
		require.NoError(t, err)
		require.NoError(t, m.CommitTurn(ctx, session,
			domain.Message{Role: domain.RoleUser, Content: "q"},
			domain.Message{Role: domain.RoleAssistant, Content: "a"},
		))
		release()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.locks)
}

func TestConversationManager_LockHeldWhileTurnInFlight(t *testing.T) {
	ctx := context.Background()
	m := NewConversationManager(newMockSessionStore())

	_, release, err := m.BeginTurn(ctx, "busy")
	require.NoError(t, err)

	m.mu.Lock()
	_, held := m.locks["busy"]
	m.mu.Unlock()
	assert.True(t, held)

	release()

	m.mu.Lock()
	_, held = m.locks["busy"]
	m.mu.Unlock()
	assert.False(t, held)
}

func TestConversationManager_BeginTurn_SerializesSameSession(t *testing.T) {
	ctx := context.Background()
	m := NewConversationManager(newMockSessionStore())

	session, release, err := m.BeginTurn(ctx, "shared")
	require.NoError(t, err)

	entered := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, release2, err := m.BeginTurn(ctx, "shared")
		assert.NoError(t, err)
		close(entered)
		release2()
	}()

	select {
	case <-entered:
		t.Fatal("second turn entered while first still held the session")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, m.CommitTurn(ctx, session,
		domain.Message{Role: domain.RoleUser, Content: "q"},
		domain.Message{Role: domain.RoleAssistant, Content: "a"},
	))
	release()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second turn never entered after release")
	}
	wg.Wait()
}
