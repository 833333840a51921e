package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolios/{id}/risk", h.HandleAssess)
	r.Put("/risk/liquidity/{symbol}", h.HandleSetLiquidityScore)
	r.Put("/risk/protocols/{protocol}", h.HandleSetProtocolScore)
	r.Put("/risk/assets/{symbol}/protocol", h.HandleAssignProtocol)
}
