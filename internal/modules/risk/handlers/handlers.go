// Package handlers provides HTTP handlers for risk assessment.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/internal/modules/risk"
)

// Handler handles risk HTTP requests
type Handler struct {
	service *risk.Service
	repo    *risk.Repository
	log     zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(service *risk.Service, repo *risk.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// AssessRequest carries the risk inputs the engine does not track itself.
type AssessRequest struct {
	TotalDebt   float64           `json:"total_debt"`
	LPPositions []risk.LPPosition `json:"lp_positions"`
}

// ScoreRequest sets one reference score.
type ScoreRequest struct {
	Score float64 `json:"score"`
}

// ProtocolAssignmentRequest maps an asset to a protocol.
type ProtocolAssignmentRequest struct {
	Protocol string `json:"protocol"`
}

// HandleAssess handles POST /api/portfolios/{id}/risk?window=90d
// POST rather than GET because debt and LP positions ride in the body.
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	window, ok := domain.ParseWindow(r.URL.Query().Get("window"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid window")
		return
	}

	var req AssessRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log.Error().Err(err).Msg("Failed to decode request body")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	metrics, err := h.service.AssessPortfolio(chi.URLParam(r, "id"), window, risk.Extras{
		TotalDebt:   req.TotalDebt,
		LPPositions: req.LPPositions,
	})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := map[string]interface{}{
		"data": metrics,
		"metadata": map[string]interface{}{
			"window":     string(window),
			"confidence": risk.DefaultConfidence,
			"timestamp":  time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleSetLiquidityScore handles PUT /api/risk/liquidity/{symbol}
func (h *Handler) HandleSetLiquidityScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if err := h.repo.UpsertLiquidityScore(symbol, req.Score); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"symbol": symbol, "score": req.Score},
	})
}

// HandleSetProtocolScore handles PUT /api/risk/protocols/{protocol}
func (h *Handler) HandleSetProtocolScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	protocol := chi.URLParam(r, "protocol")
	if err := h.repo.UpsertProtocolScore(protocol, req.Score); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"protocol": protocol, "score": req.Score},
	})
}

// HandleAssignProtocol handles PUT /api/risk/assets/{symbol}/protocol
func (h *Handler) HandleAssignProtocol(w http.ResponseWriter, r *http.Request) {
	var req ProtocolAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Protocol == "" {
		h.writeError(w, http.StatusBadRequest, "protocol is required")
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if err := h.repo.SetAssetProtocol(symbol, req.Protocol); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"symbol": symbol, "protocol": req.Protocol},
	})
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
