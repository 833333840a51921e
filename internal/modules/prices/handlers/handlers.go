// Package handlers provides HTTP handlers for market data ingestion.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/driftlabs/driftd/internal/modules/prices"
)

// Handler handles price HTTP requests
type Handler struct {
	repo *prices.Repository
	log  zerolog.Logger
}

// NewHandler creates a new prices handler
func NewHandler(repo *prices.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "prices").Logger(),
	}
}

// SpotRequest sets one spot price.
type SpotRequest struct {
	Price float64 `json:"price"`
}

// DailyCloseRequest ingests one daily close.
type DailyCloseRequest struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// HandleGetSpot handles GET /api/prices/spot/{symbol}
func (h *Handler) HandleGetSpot(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	price, ok := h.repo.Price(symbol)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no price for symbol")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"symbol": symbol, "price": price},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSetSpot handles PUT /api/prices/spot/{symbol}
func (h *Handler) HandleSetSpot(w http.ResponseWriter, r *http.Request) {
	var req SpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if err := h.repo.UpsertSpot(symbol, req.Price); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"symbol": symbol, "price": req.Price},
	})
}

// HandleIngestDailyClose handles POST /api/prices/daily/{symbol}
func (h *Handler) HandleIngestDailyClose(w http.ResponseWriter, r *http.Request) {
	var req DailyCloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if err := h.repo.UpsertDailyClose(symbol, req.Date, req.Close); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{"symbol": symbol, "date": req.Date, "close": req.Close},
	})
}

// HandleListSymbols handles GET /api/prices/symbols
func (h *Handler) HandleListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.repo.Symbols()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": symbols,
		"metadata": map[string]interface{}{
			"count":     len(symbols),
			"timestamp": time.Now().Format(time.RFC3339),
		},
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
