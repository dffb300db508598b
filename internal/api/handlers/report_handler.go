package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/connectingdocs/treatment-engine/internal/application/services"
	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

// ReportHandler handles recommendation report HTTP requests
type ReportHandler struct {
	reports *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// generateReportRequest is the inbound scoring payload: a canonical
// profile or a raw survey, plus optional re-tune overrides.
type generateReportRequest struct {
	PatientID    string                    `json:"patient_id"`
	Profile      *entities.PatientProfile  `json:"profile,omitempty"`
	Survey       *entities.RawSurvey       `json:"survey,omitempty"`
	Overrides    *entities.RetuneOverrides `json:"overrides,omitempty"`
	ForceRefresh bool                      `json:"force_refresh,omitempty"`
}

// GenerateReport handles POST /api/v1/reports
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.reports.Generate(r.Context(), &services.GenerateReportRequest{
		PatientID:    req.PatientID,
		Profile:      req.Profile,
		Survey:       req.Survey,
		Overrides:    req.Overrides,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, report)
}

// GetReport handles GET /api/v1/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID := r.PathValue("id")
	if reportID == "" {
		respondWithError(w, http.StatusBadRequest, "report ID is required")
		return
	}
	patientID := r.URL.Query().Get("patient_id")

	report, err := h.reports.Resolve(r.Context(), reportID, patientID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}
