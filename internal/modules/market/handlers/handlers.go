// Package handlers provides HTTP handlers for market data.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kaiwwang/MoneyPot/internal/domain"
	"github.com/kaiwwang/MoneyPot/internal/modules/market"
)

// Handler handles market data HTTP requests
type Handler struct {
	service *market.Service
	log     zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(service *market.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleGetStocks returns the latest quote for every known ticker
func (h *Handler) HandleGetStocks(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.service.All()
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	stocks := make([]map[string]interface{}, 0, len(quotes))
	for _, quote := range quotes {
		stocks = append(stocks, quoteToMap(quote))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"stocks": stocks})
}

// HandleGetStock returns the latest quote for one ticker
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	quote, err := h.service.Latest(ticker)
	if errors.Is(err, domain.ErrUnknownTicker) {
		h.writeError(w, http.StatusNotFound, "stock not found")
		return
	}
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, quoteToMap(quote))
}

// HandleGetHistory returns recent daily candles for one ticker, newest first
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	candles, err := h.service.History(ticker, days)
	if errors.Is(err, domain.ErrUnknownTicker) {
		h.writeError(w, http.StatusNotFound, "stock not found")
		return
	}
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	history := make([]map[string]interface{}, 0, len(candles))
	for _, c := range candles {
		history = append(history, map[string]interface{}{
			"ticker": c.Ticker,
			"date":   c.Date,
			"open":   c.Open.InexactFloat64(),
			"high":   c.High.InexactFloat64(),
			"low":    c.Low.InexactFloat64(),
			"close":  c.Close.InexactFloat64(),
			"volume": c.Volume,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":  ticker,
		"history": history,
	})
}

// HandleImport loads candles from a CSV request body
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	imported, err := h.service.ImportCSV(r.Body)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "import completed",
		"imported": imported,
	})
}

func quoteToMap(q domain.Quote) map[string]interface{} {
	return map[string]interface{}{
		"ticker":         q.Ticker,
		"name":           q.Name,
		"current_price":  q.CurrentPrice.InexactFloat64(),
		"previous_close": q.PreviousClose.InexactFloat64(),
		"change":         q.Change.InexactFloat64(),
		"change_pct":     q.ChangePct.InexactFloat64(),
		"open":           q.Open.InexactFloat64(),
		"high":           q.High.InexactFloat64(),
		"low":            q.Low.InexactFloat64(),
		"volume":         q.Volume,
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
