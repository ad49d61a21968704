package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Get("/", h.HandleGetTrades)  // Trade history, newest first
		r.Post("/buy", h.HandleBuy)    // Execute a buy
		r.Post("/sell", h.HandleSell)  // Execute a sell
	})
}
