package routes

import (
	"net/http"

	"github.com/connectingdocs/treatment-engine/internal/api/handlers"
	"github.com/connectingdocs/treatment-engine/internal/api/middleware"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	reportHandler *handlers.ReportHandler
	matchHandler  *handlers.MatchHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	reportHandler *handlers.ReportHandler,
	matchHandler *handlers.MatchHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		reportHandler: reportHandler,
		matchHandler:  matchHandler,
		metrics:       metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Report endpoints
	r.mux.HandleFunc("POST /api/v1/reports", r.reportHandler.GenerateReport)
	r.mux.HandleFunc("GET /api/v1/reports/{id}", r.reportHandler.GetReport)

	// Provider match endpoints
	r.mux.HandleFunc("POST /api/v1/reports/{id}/matches", r.matchHandler.RunMatch)
	r.mux.HandleFunc("GET /api/v1/reports/{id}/matches", r.matchHandler.ListMatches)

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
