package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/scraper"
)

// RunHandler exposes batch run control: start, stop, status.
type RunHandler struct {
	manager *scraper.Manager
	sink    interfaces.ProgressSink
	logger  arbor.ILogger
}

func NewRunHandler(manager *scraper.Manager, sink interfaces.ProgressSink, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		manager: manager,
		sink:    sink,
		logger:  logger,
	}
}

// startRunRequest is the POST /api/runs payload.
type startRunRequest struct {
	Symbols      []string `json:"symbols"`
	Types        []string `json:"types,omitempty"`
	DelaySeconds int      `json:"delay_seconds,omitempty"`
}

// StartRunHandler handles POST /api/runs. A run already in flight means 409.
func (h *RunHandler) StartRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Symbols) == 0 {
		WriteError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	types, err := parseCategories(req.Types)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	runReq := scraper.RunRequest{
		Symbols:      req.Symbols,
		Types:        types,
		CompanyDelay: time.Duration(req.DelaySeconds) * time.Second,
	}

	if err := h.manager.Start(runReq, h.sink); err != nil {
		if errors.Is(err, scraper.ErrRunActive) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().Int("symbols", len(req.Symbols)).Msg("Archive run started")
	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "started",
		"symbols": len(req.Symbols),
	})
}

// StopRunHandler handles DELETE /api/runs/current.
func (h *RunHandler) StopRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if !h.manager.Stop() {
		WriteError(w, http.StatusNotFound, "no active run")
		return
	}

	h.logger.Info().Msg("Archive run stop requested")
	WriteJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// GetStatusHandler handles GET /api/status.
func (h *RunHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	running, stats, lastErr := h.manager.Status()
	body := map[string]interface{}{
		"running": running,
		"stats":   stats,
		"version": common.GetVersion(),
	}
	if lastErr != nil {
		body["last_error"] = lastErr.Error()
	}
	WriteJSON(w, http.StatusOK, body)
}

// HealthHandler handles GET /healthz.
func (h *RunHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": common.GetVersion(),
	})
}

func parseCategories(names []string) ([]models.DocumentCategory, error) {
	var types []models.DocumentCategory
	for _, name := range names {
		cat := models.DocumentCategory(name)
		switch cat {
		case models.CategoryTranscript, models.CategoryPresentation,
			models.CategoryRecording, models.CategoryConcall, models.CategoryAnnualReport:
			types = append(types, cat)
		default:
			return nil, fmt.Errorf("unknown document type %q", name)
		}
	}
	return types, nil
}
