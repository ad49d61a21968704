package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all account routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/account", func(r chi.Router) {
		r.Get("/", h.HandleGetAccount)                      // Balance and profit summary
		r.Post("/deposit", h.HandleDeposit)                 // Add cash
		r.Get("/max-buy/{ticker}", h.HandleMaxBuyQuantity)  // Affordable share count
		r.Get("/cash-flows", h.HandleGetCashFlows)          // Deposit history
	})
}
