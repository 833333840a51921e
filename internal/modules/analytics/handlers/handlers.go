// Package handlers provides HTTP handlers for performance analytics.
package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/internal/modules/analytics"
)

// Handler handles analytics HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleGetMetrics handles GET /api/portfolios/{id}/metrics?window=30d
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	window, ok := domain.ParseWindow(r.URL.Query().Get("window"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid window")
		return
	}

	metrics, err := h.service.ForPortfolio(chi.URLParam(r, "id"), window)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := map[string]interface{}{
		"data": MetricsPayload(metrics),
		"metadata": map[string]interface{}{
			"window":    string(window),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetHistory handles GET /api/portfolios/{id}/history?window=30d
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	window, ok := domain.ParseWindow(r.URL.Query().Get("window"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid window")
		return
	}

	points, err := h.service.Series(chi.URLParam(r, "id"), window)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := map[string]interface{}{
		"data": points,
		"metadata": map[string]interface{}{
			"window":    string(window),
			"count":     len(points),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// MetricsPayload converts metrics into a JSON-safe map. Ratio fields carry
// +Inf sentinels that encoding/json cannot represent; those become null.
func MetricsPayload(m analytics.Metrics) map[string]interface{} {
	return map[string]interface{}{
		"total_return_pct":  m.TotalReturnPct,
		"annualized_return": m.AnnualizedReturn,
		"volatility":        jsonNumber(m.Volatility),
		"sharpe":            jsonNumber(m.Sharpe),
		"sortino":           jsonNumber(m.Sortino),
		"calmar":            jsonNumber(m.Calmar),
		"max_drawdown_pct":  m.MaxDrawdownPct,
		"win_rate_pct":      m.WinRatePct,
		"profit_factor":     jsonNumber(m.ProfitFactor),
		"sample_count":      m.SampleCount,
		"window_days":       m.WindowDays,
	}
}

func jsonNumber(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
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
