package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
)

type driveImportRequest struct {
	FileID string `json:"file_id"`
}

// remoteFileResponse is the wire representation of a listable Drive file.
type remoteFileResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	WebViewLink string `json:"web_view_link,omitempty"`
}

func (s *Server) handleListDriveFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.documents.ListRemoteFiles(r.Context())
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	out := make([]remoteFileResponse, len(files))
	for i, f := range files {
		out[i] = remoteFileResponse{
			ID:          f.ID,
			Name:        f.Name,
			MimeType:    f.MimeType,
			Size:        f.Size,
			WebViewLink: f.WebViewLink,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleImportDriveFile(w http.ResponseWriter, r *http.Request) {
	var req driveImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, s.log, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput))
		return
	}
	if req.FileID == "" {
		respondError(w, s.log, fmt.Errorf("%w: file_id is required", domain.ErrInvalidInput))
		return
	}

	doc, err := s.documents.ImportRemoteFile(r.Context(), req.FileID)
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}
