// Package handlers provides HTTP handlers for target weight computation.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/internal/modules/targeting"
)

// SignalSource computes per-asset signals. A nil symbol list means every
// symbol with stored history.
type SignalSource interface {
	Signals(symbols []string) (map[string]domain.AssetSignal, error)
}

// Handler handles targeting HTTP requests
type Handler struct {
	signals SignalSource
	log     zerolog.Logger
}

// NewHandler creates a new targeting handler
func NewHandler(signals SignalSource, log zerolog.Logger) *Handler {
	return &Handler{
		signals: signals,
		log:     log.With().Str("handler", "targeting").Logger(),
	}
}

// WeightsRequest asks for target percents over a symbol set.
type WeightsRequest struct {
	Strategy string   `json:"strategy"`
	Symbols  []string `json:"symbols"`
}

// HandleComputeWeights handles POST /api/targeting/weights
func (h *Handler) HandleComputeWeights(w http.ResponseWriter, r *http.Request) {
	var req WeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	strategy, ok := targeting.ParseStrategy(req.Strategy)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown strategy")
		return
	}

	signals, err := h.signals.Signals(req.Symbols)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	weights := strategy.Weights(signals)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"strategy": string(strategy),
			"weights":  weights,
		},
		"metadata": map[string]interface{}{
			"symbols":   len(signals),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
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
