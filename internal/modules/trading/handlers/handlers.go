// Package handlers provides HTTP handlers for trade execution and history.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
	"github.com/kaiwwang/MoneyPot/internal/modules/trading"
)

const defaultHistoryLimit = 100

// Handler handles trading HTTP requests
type Handler struct {
	executor *trading.Executor
	log      zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(executor *trading.Executor, log zerolog.Logger) *Handler {
	return &Handler{
		executor: executor,
		log:      log.With().Str("handler", "trading").Logger(),
	}
}

// tradeRequest is the POST /trades/buy and /trades/sell body. Price is
// only honored on buys; sells always execute at the latest market price.
type tradeRequest struct {
	Ticker   string       `json:"ticker"`
	Quantity int64        `json:"quantity"`
	Price    *json.Number `json:"price,omitempty"`
}

func (h *Handler) decodeTradeRequest(w http.ResponseWriter, r *http.Request) (tradeRequest, bool) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Ticker == "" {
		h.writeError(w, http.StatusBadRequest, "ticker is required")
		return req, false
	}
	return req, true
}

// HandleBuy executes a buy order, at the request's price when one is given
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTradeRequest(w, r)
	if !ok {
		return
	}

	var priceOverride *decimal.Decimal
	if req.Price != nil {
		parsed, err := decimal.NewFromString(req.Price.String())
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
		priceOverride = &parsed
	}

	trade, err := h.executor.Buy(req.Ticker, req.Quantity, priceOverride)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	h.writeTradeResponse(w, trade)
}

// HandleSell executes a sell order. A request that tries to name its own
// sell price is rejected outright; accepting one would let a caller credit
// arbitrary cash.
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTradeRequest(w, r)
	if !ok {
		return
	}
	if req.Price != nil {
		h.writeError(w, http.StatusBadRequest, "price cannot be set on a sell")
		return
	}

	trade, err := h.executor.Sell(req.Ticker, req.Quantity)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	h.writeTradeResponse(w, trade)
}

func (h *Handler) writeTradeResponse(w http.ResponseWriter, trade domain.Trade) {
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "trade executed",
		"trade":   tradeToMap(trade),
	})
}

// HandleGetTrades returns the trade history, newest first. An optional
// ticker query parameter filters to one ticker.
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var trades []domain.Trade
	var err error
	if ticker := r.URL.Query().Get("ticker"); ticker != "" {
		trades, err = h.executor.HistoryByTicker(ticker, limit)
	} else {
		trades, err = h.executor.History(limit)
	}
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	result := make([]map[string]interface{}, 0, len(trades))
	for _, trade := range trades {
		result = append(result, tradeToMap(trade))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"trades": result})
}

// Helper methods

func tradeToMap(trade domain.Trade) map[string]interface{} {
	return map[string]interface{}{
		"id":           trade.ID,
		"ticker":       trade.Ticker,
		"side":         string(trade.Side),
		"quantity":     trade.Quantity,
		"price":        trade.Price.InexactFloat64(),
		"total_amount": trade.TotalAmount.InexactFloat64(),
		"executed_at":  trade.ExecutedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownTicker):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

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
