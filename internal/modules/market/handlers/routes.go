package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/market", func(r chi.Router) {
		r.Get("/stocks", h.HandleGetStocks)                    // All latest quotes
		r.Get("/stocks/{ticker}", h.HandleGetStock)            // One quote
		r.Get("/stocks/{ticker}/history", h.HandleGetHistory)  // Daily candles
		r.Post("/import", h.HandleImport)                      // CSV candle import
	})
}
