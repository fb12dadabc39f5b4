package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/services/analysis"
	"github.com/ternarybob/arbor"
)

// AnalysisHandler handles HTTP requests for document analysis
type AnalysisHandler struct {
	pipeline *analysis.Pipeline
	logger   arbor.ILogger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(pipeline *analysis.Pipeline, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

type analyzeRequest struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	Content    string `json:"content"`
	Force      bool   `json:"force"`
}

// AnalyzeHandler handles POST /api/analyze
func (h *AnalysisHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req analyzeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		WriteError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.DocumentID == "" {
		req.DocumentID = common.NewDocumentID()
	}

	record, err := h.pipeline.Analyze(r.Context(), analysis.AnalyzeRequest{
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		Content:    []byte(req.Content),
		Force:      req.Force,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", req.DocumentID).Msg("Analysis request failed")
		if errors.Is(err, interfaces.ErrExtractionFailed) {
			WriteError(w, http.StatusBadGateway, "Analysis failed, retry: "+err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// GetAnalysisHandler handles GET /api/documents/{id}/analysis
func (h *AnalysisHandler) GetAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	documentID := pathSegment(r.URL.Path, "/api/documents/", "/analysis")
	if documentID == "" {
		WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	record, err := h.pipeline.GetRecord(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRecordNotFound) {
			WriteError(w, http.StatusNotFound, "No analysis record for document")
			return
		}
		h.logger.Error().Err(err).Str("document_id", documentID).Msg("Failed to load analysis record")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// DeleteDocumentHandler handles DELETE /api/documents/{id}
func (h *AnalysisHandler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	documentID := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if documentID == "" || strings.Contains(documentID, "/") {
		WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if err := h.pipeline.DeleteDocument(r.Context(), documentID); err != nil {
		h.logger.Error().Err(err).Str("document_id", documentID).Msg("Failed to delete document")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(w, "Document deleted")
}

// pathSegment extracts the segment between prefix and suffix, or "" when the
// path does not match.
func pathSegment(path, prefix, suffix string) string {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	segment := strings.TrimPrefix(path, prefix)
	segment = strings.TrimSuffix(segment, suffix)
	if strings.Contains(segment, "/") {
		return ""
	}
	return segment
}
