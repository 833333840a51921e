// Package handlers provides HTTP handlers for rebalance execution.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/internal/modules/rebalancing"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	service *rebalancing.Service
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service *rebalancing.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// RebalanceRequest is the body for a waterfall rebalance. A nil Targets map
// falls back to the portfolio's persisted weights.
type RebalanceRequest struct {
	Targets map[string]int `json:"targets"`
	DryRun  bool           `json:"dry_run"`
}

// RetargetRequest is the body for a strict retarget.
type RetargetRequest struct {
	Weights map[string]float64 `json:"weights"`
	DryRun  bool               `json:"dry_run"`
}

// HandleRebalance handles POST /api/portfolios/{id}/rebalance
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Rebalance(chi.URLParam(r, "id"), req.Targets, req.DryRun)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeResult(w, result, req.DryRun)
}

// HandleRetarget handles POST /api/portfolios/{id}/retarget
func (h *Handler) HandleRetarget(w http.ResponseWriter, r *http.Request) {
	var req RetargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Retarget(chi.URLParam(r, "id"), req.Weights, req.DryRun)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeResult(w, result, req.DryRun)
}

// HandleDrift handles GET /api/portfolios/{id}/drift
func (h *Handler) HandleDrift(w http.ResponseWriter, r *http.Request) {
	drift, err := h.service.Drift(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"max_drift":        drift,
			"dead_band":        rebalancing.DeadBandFraction,
			"rebalance_needed": drift > rebalancing.DeadBandFraction,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeResult(w http.ResponseWriter, result *rebalancing.Result, dryRun bool) {
	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"dry_run":   dryRun,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "portfolio not found")
	case errors.Is(err, domain.ErrInvalidWeights):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMissingPrice):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
