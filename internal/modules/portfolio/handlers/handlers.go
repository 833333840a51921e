// Package handlers provides HTTP handlers for portfolio state.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	repo *portfolio.Repository
	log  zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(repo *portfolio.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "portfolio").Logger(),
	}
}

// CreateRequest is the body for creating a portfolio.
type CreateRequest struct {
	Name          string `json:"name"`
	QuoteSymbol   string `json:"quote_symbol"`
	Authoritative bool   `json:"authoritative"`
}

// HoldingRequest is the body for setting one holding.
type HoldingRequest struct {
	Quantity float64 `json:"quantity"`
}

// WeightsRequest is the body for replacing the target weight vector.
type WeightsRequest struct {
	Weights map[string]float64 `json:"weights"`
}

// HandleCreate handles POST /api/portfolios
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p := &domain.Portfolio{
		Name:          req.Name,
		QuoteSymbol:   req.QuoteSymbol,
		Authoritative: req.Authoritative,
	}
	if err := h.repo.Create(p); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, envelope(p))
}

// HandleList handles GET /api/portfolios
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.repo.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(portfolios))
}

// HandleGet handles GET /api/portfolios/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.Get(chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "portfolio not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(p))
}

// HandleGetHoldings handles GET /api/portfolios/{id}/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.repo.GetHoldings(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(holdings))
}

// HandleSetHolding handles PUT /api/portfolios/{id}/holdings/{symbol}
func (h *Handler) HandleSetHolding(w http.ResponseWriter, r *http.Request) {
	var req HoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	symbol := chi.URLParam(r, "symbol")
	holding := domain.Holding{Symbol: symbol, Quantity: req.Quantity}
	if err := h.repo.UpsertHolding(id, holding); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(holding))
}

// HandleGetWeights handles GET /api/portfolios/{id}/weights
func (h *Handler) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := h.repo.GetTargetWeights(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(weights))
}

// HandleSetWeights handles PUT /api/portfolios/{id}/weights
func (h *Handler) HandleSetWeights(w http.ResponseWriter, r *http.Request) {
	var req WeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.repo.SaveTargetWeights(id, req.Weights); err != nil {
		if errors.Is(err, domain.ErrInvalidWeights) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(req.Weights))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
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
