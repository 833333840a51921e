package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/prices/spot/{symbol}", h.HandleGetSpot)
	r.Put("/prices/spot/{symbol}", h.HandleSetSpot)
	r.Post("/prices/daily/{symbol}", h.HandleIngestDailyClose)
	r.Get("/prices/symbols", h.HandleListSymbols)
}
