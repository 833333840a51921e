package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolios/{id}/rebalance", h.HandleRebalance)
	r.Post("/portfolios/{id}/retarget", h.HandleRetarget)
	r.Get("/portfolios/{id}/drift", h.HandleDrift)
}
