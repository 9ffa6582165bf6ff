package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, s.log, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput))
		return
	}

	result, err := s.chat.Chat(r.Context(), req.Message, req.SessionID)
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
