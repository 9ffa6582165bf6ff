package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

// documentResponse is the wire representation of a document.
type documentResponse struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	FileType         string    `json:"file_type"`
	FileSize         int64     `json:"file_size"`
	UploadDate       time.Time `json:"upload_date"`
	Status           string    `json:"status"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	SourceURL        string    `json:"source_url,omitempty"`
}

func toDocumentResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:               doc.ID,
		OriginalFilename: doc.OriginalFilename,
		FileType:         doc.FileType,
		FileSize:         doc.FileSize,
		UploadDate:       doc.UploadDate,
		Status:           string(doc.Status),
		FailureReason:    doc.FailureReason,
		SourceURL:        doc.SourceURL,
	}
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		// The multipart reader does not always wrap *http.MaxBytesError,
		// so match the message too.
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondError(w, s.log, fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrInvalidInput, s.maxUploadBytes))
			return
		}
		respondError(w, s.log, fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, s.log, fmt.Errorf("reading upload: %w", err))
		return
	}

	doc, err := s.documents.Upload(r.Context(), header.Filename, data)
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	out := make([]documentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(&docs[i])
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
