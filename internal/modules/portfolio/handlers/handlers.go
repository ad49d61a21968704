// Package handlers provides HTTP handlers for portfolio holdings.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kaiwwang/MoneyPot/internal/domain"
	"github.com/kaiwwang/MoneyPot/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns all holdings with current values, ticker-ascending
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.service.Holdings()
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	result := make([]map[string]interface{}, 0, len(holdings))
	totalValue := 0.0
	totalProfit := 0.0
	for _, holding := range holdings {
		result = append(result, holdingToMap(holding))
		totalValue += holding.CurrentValue.InexactFloat64()
		totalProfit += holding.Profit.InexactFloat64()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"holdings":     result,
		"total_value":  totalValue,
		"total_profit": totalProfit,
	})
}

// HandleGetHolding returns one holding by ticker
func (h *Handler) HandleGetHolding(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	holding, err := h.service.Holding(ticker)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	if holding == nil {
		h.writeError(w, http.StatusNotFound, "ticker not held")
		return
	}

	h.writeJSON(w, http.StatusOK, holdingToMap(*holding))
}

func holdingToMap(holding domain.Holding) map[string]interface{} {
	return map[string]interface{}{
		"ticker":        holding.Ticker,
		"name":          holding.Name,
		"quantity":      holding.Quantity,
		"avg_cost":      holding.AvgCost.InexactFloat64(),
		"total_cost":    holding.TotalCost.InexactFloat64(),
		"current_price": holding.CurrentPrice.InexactFloat64(),
		"current_value": holding.CurrentValue.InexactFloat64(),
		"profit":        holding.Profit.InexactFloat64(),
		"profit_pct":    holding.ProfitPct.InexactFloat64(),
		"price_stale":   holding.PriceStale,
	}
}

func statusForError(err error) int {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Helper methods

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
