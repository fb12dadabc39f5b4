package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Analysis
	mux.HandleFunc("/api/analyze", s.app.AnalysisHandler.AnalyzeHandler) // POST - run the pipeline
	mux.HandleFunc("/api/documents/", s.handleDocumentRoutes)            // GET /{id}/analysis, DELETE /{id}

	// API routes - Checklist
	mux.HandleFunc("/api/checklist", s.app.ChecklistHandler.ChecklistHandler) // GET (list), POST (upsert)

	// API routes - Operations
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)       // GET - application status
	mux.HandleFunc("/api/cache/sweep", s.app.StatusHandler.SweepCacheHandler) // POST - manual cache sweep

	return mux
}

// handleDocumentRoutes dispatches /api/documents/{id}... subroutes.
func (s *Server) handleDocumentRoutes(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/analysis"):
		s.app.AnalysisHandler.GetAnalysisHandler(w, r)
	case r.Method == http.MethodDelete:
		s.app.AnalysisHandler.DeleteDocumentHandler(w, r)
	default:
		http.NotFound(w, r)
	}
}
