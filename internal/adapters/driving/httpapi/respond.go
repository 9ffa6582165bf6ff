package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps domain errors to HTTP statuses. Anything
// unrecognized is a 500 with a generic message so internals don't leak.
func respondError(w http.ResponseWriter, log *slog.Logger, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedFileType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrRemoteStorageUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrCompletionService), errors.Is(err, domain.ErrEmbeddingService):
		status = http.StatusBadGateway
	default:
		log.Error("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}
