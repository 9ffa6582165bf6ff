package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driving"
)

// reportResponse is the wire representation of a report job.
type reportResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Sections      []string  `json:"sections"`
	DocumentIDs   []string  `json:"document_ids,omitempty"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toReportResponse(report *domain.Report) reportResponse {
	return reportResponse{
		ID:            report.ID,
		Title:         report.Title,
		Sections:      report.Sections,
		DocumentIDs:   report.DocumentIDs,
		Status:        string(report.Status),
		FailureReason: report.FailureReason,
		CreatedAt:     report.CreatedAt,
	}
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req driving.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, s.log, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput))
		return
	}

	report, err := s.reports.Generate(r.Context(), req)
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusAccepted, toReportResponse(report))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reports.List(r.Context())
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	out := make([]reportResponse, len(reports))
	for i := range reports {
		out[i] = toReportResponse(&reports[i])
	}
	respondJSON(w, http.StatusOK, map[string]any{"reports": out})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toReportResponse(report))
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.reports.Download(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
