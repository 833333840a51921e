// Package handlers provides HTTP handlers for benchmark comparison.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/internal/modules/benchmark"
	"github.com/driftlabs/driftd/internal/modules/history"

	analyticshandlers "github.com/driftlabs/driftd/internal/modules/analytics/handlers"
)

// Handler handles benchmark HTTP requests
type Handler struct {
	service *benchmark.Service
	repo    *history.BenchmarkRepository
	log     zerolog.Logger
}

// NewHandler creates a new benchmark handler
func NewHandler(service *benchmark.Service, repo *history.BenchmarkRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "benchmark").Logger(),
	}
}

// PointRequest ingests one benchmark series point.
type PointRequest struct {
	Timestamp int64   `json:"timestamp"` // unix seconds
	Value     float64 `json:"value"`
}

// HandleCompare handles GET /api/portfolios/{id}/benchmark/{benchmark}?window=90d
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	window, ok := domain.ParseWindow(r.URL.Query().Get("window"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid window")
		return
	}

	comparison, err := h.service.Compare(chi.URLParam(r, "id"), chi.URLParam(r, "benchmark"), window)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Nested metrics can hold +Inf sentinels, so rebuild the payload with
	// JSON-safe values.
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"portfolio_id":     comparison.PortfolioID,
			"benchmark_id":     comparison.BenchmarkID,
			"window":           string(comparison.Window),
			"portfolio_return": comparison.PortfolioReturn,
			"benchmark_return": comparison.BenchmarkReturn,
			"outperformance":   comparison.Outperformance,
			"beta":             comparison.Beta,
			"alpha":            comparison.Alpha,
			"correlation":      comparison.Correlation,
			"portfolio":        analyticshandlers.MetricsPayload(comparison.Portfolio),
			"benchmark":        analyticshandlers.MetricsPayload(comparison.Benchmark),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleIngestPoint handles POST /api/benchmarks/{benchmark}/points
func (h *Handler) HandleIngestPoint(w http.ResponseWriter, r *http.Request) {
	var req PointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Timestamp <= 0 || req.Value <= 0 {
		h.writeError(w, http.StatusBadRequest, "timestamp and value must be positive")
		return
	}

	benchmarkID := chi.URLParam(r, "benchmark")
	point := domain.ValueHistoryPoint{
		Timestamp:  time.Unix(req.Timestamp, 0).UTC(),
		TotalValue: req.Value,
	}
	if err := h.repo.Upsert(benchmarkID, point); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{"benchmark_id": benchmarkID, "timestamp": req.Timestamp},
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
