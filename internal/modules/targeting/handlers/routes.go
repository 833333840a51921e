package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all targeting routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/targeting/weights", h.HandleComputeWeights)
}
