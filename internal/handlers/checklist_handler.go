package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/services/checklist"
	"github.com/ternarybob/arbor"
)

// ChecklistHandler handles HTTP requests for eligibility checklists
type ChecklistHandler struct {
	service *checklist.Service
	logger  arbor.ILogger
}

// NewChecklistHandler creates a new ChecklistHandler
func NewChecklistHandler(service *checklist.Service, logger arbor.ILogger) *ChecklistHandler {
	return &ChecklistHandler{
		service: service,
		logger:  logger,
	}
}

type upsertChecklistRequest struct {
	DocumentID   string `json:"document_id"`
	UserID       string `json:"user_id"`
	CriteriaText string `json:"criteria_text"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
}

// ChecklistHandler routes GET (list) and POST (upsert) on /api/checklist.
func (h *ChecklistHandler) ChecklistHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listChecklist(w, r)
	case http.MethodPost:
		h.upsertChecklistItem(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ChecklistHandler) listChecklist(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("document_id")
	userID := r.URL.Query().Get("user_id")
	if documentID == "" || userID == "" {
		WriteError(w, http.StatusBadRequest, "document_id and user_id are required")
		return
	}

	items, err := h.service.List(r.Context(), documentID, userID)
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", documentID).Msg("Failed to list checklist")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []models.ChecklistItem{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func (h *ChecklistHandler) upsertChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req upsertChecklistRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.DocumentID == "" || req.UserID == "" || strings.TrimSpace(req.CriteriaText) == "" {
		WriteError(w, http.StatusBadRequest, "document_id, user_id and criteria_text are required")
		return
	}

	status := models.ChecklistStatus(req.Status)
	switch status {
	case "", models.ChecklistPending, models.ChecklistMet, models.ChecklistNotMet:
	default:
		WriteError(w, http.StatusBadRequest, "Invalid status: "+req.Status)
		return
	}

	item, err := h.service.Upsert(r.Context(), req.DocumentID, req.UserID, req.CriteriaText, status, req.Notes)
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", req.DocumentID).Msg("Checklist upsert failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, item)
}
