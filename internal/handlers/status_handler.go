package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/services/gc"
	"github.com/ternarybob/arbor"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	config    *common.Config
	sweeper   *gc.Sweeper
	startTime time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(config *common.Config, sweeper *gc.Sweeper, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:    config,
		sweeper:   sweeper,
		startTime: time.Now(),
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"version":            common.GetVersion(),
		"environment":        h.config.Environment,
		"processing_version": h.config.Pipeline.ProcessingVersion,
		"llm_provider":       h.config.LLM.DefaultProvider,
		"uptime":             time.Since(h.startTime).Round(time.Second).String(),
	})
}

// SweepCacheHandler handles POST /api/cache/sweep
func (h *StatusHandler) SweepCacheHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	removed, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Manual cache sweep failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}
