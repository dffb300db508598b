package handlers

import (
	"net/http"

	"github.com/connectingdocs/treatment-engine/internal/application/services"
)

// MatchHandler handles provider compatibility HTTP requests
type MatchHandler struct {
	reports *services.ReportService
	matches *services.ProviderMatchService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(reports *services.ReportService, matches *services.ProviderMatchService) *MatchHandler {
	return &MatchHandler{reports: reports, matches: matches}
}

// RunMatch handles POST /api/v1/reports/{id}/matches
func (h *MatchHandler) RunMatch(w http.ResponseWriter, r *http.Request) {
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

	results, err := h.matches.Match(r.Context(), report)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"report_id": report.ID,
		"matches":   results,
		"count":     len(results),
	})
}

// ListMatches handles GET /api/v1/reports/{id}/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	reportID := r.PathValue("id")
	if reportID == "" {
		respondWithError(w, http.StatusBadRequest, "report ID is required")
		return
	}

	results, err := h.matches.History(r.Context(), reportID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"report_id": reportID,
		"matches":   results,
		"count":     len(results),
	})
}
