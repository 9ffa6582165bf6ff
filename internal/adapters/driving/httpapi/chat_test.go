package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driving"
)

func chatRequestBody(message, sessionID string) *strings.Reader {
	body, _ := json.Marshal(chatRequest{Message: message, SessionID: sessionID})
	return strings.NewReader(string(body))
}

func TestServer_Chat(t *testing.T) {
	f := newServerFixture()
	f.chat.chatFunc = func(ctx context.Context, message, sessionID string) (*driving.ChatResult, error) {
		return &driving.ChatResult{
			Content:   "Take one tablet daily [S1].",
			SessionID: sessionID,
			Citations: []domain.Citation{
				{DocumentID: "doc-1", DocumentName: "leaflet.pdf", Pages: []int{2}},
			},
		}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody("what is the dosage?", "session-7"))
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp driving.ChatResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session-7", resp.SessionID)
	assert.Contains(t, resp.Content, "[S1]")
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "leaflet.pdf", resp.Citations[0].DocumentName)
}

func TestServer_Chat_EmptyMessage(t *testing.T) {
	f := newServerFixture()
	f.chat.chatFunc = func(ctx context.Context, message, sessionID string) (*driving.ChatResult, error) {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody("", ""))
	rec := f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Chat_InvalidJSON(t *testing.T) {
	f := newServerFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec := f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Chat_CompletionFailure(t *testing.T) {
	f := newServerFixture()
	f.chat.chatFunc = func(ctx context.Context, message, sessionID string) (*driving.ChatResult, error) {
		return nil, fmt.Errorf("%w: provider timeout", domain.ErrCompletionService)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody("hello", ""))
	rec := f.do(req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
