package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes. Patterns are registered
// flat because other modules attach routes under the same /portfolios
// prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolios", h.HandleCreate)
	r.Get("/portfolios", h.HandleList)
	r.Get("/portfolios/{id}", h.HandleGet)
	r.Get("/portfolios/{id}/holdings", h.HandleGetHoldings)
	r.Put("/portfolios/{id}/holdings/{symbol}", h.HandleSetHolding)
	r.Get("/portfolios/{id}/weights", h.HandleGetWeights)
	r.Put("/portfolios/{id}/weights", h.HandleSetWeights)
}
