// Package handlers provides HTTP handlers for the cash account.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
	"github.com/kaiwwang/MoneyPot/internal/modules/account"
)

// CashMutator is the write side of the account, implemented by the trade
// executor so deposits share its serialization with buys and sells.
type CashMutator interface {
	Deposit(amount decimal.Decimal) (decimal.Decimal, error)
	MaxBuyQuantity(ticker string) (int64, error)
}

// Handler handles account HTTP requests
type Handler struct {
	service *account.Service
	mutator CashMutator
	log     zerolog.Logger
}

// NewHandler creates a new account handler
func NewHandler(service *account.Service, mutator CashMutator, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		mutator: mutator,
		log:     log.With().Str("handler", "account").Logger(),
	}
}

// HandleGetAccount returns the account summary
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary()
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"initial_balance":   summary.InitialBalance.InexactFloat64(),
		"current_balance":   summary.CashBalance.InexactFloat64(),
		"total_assets":      summary.TotalAssets.InexactFloat64(),
		"total_profit":      summary.TotalProfit.InexactFloat64(),
		"profit_percentage": summary.ProfitPct.InexactFloat64(),
	})
}

// depositRequest is the POST /account/deposit body
type depositRequest struct {
	Amount json.Number `json:"amount"`
}

// HandleDeposit adds cash to the account
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	newBalance, err := h.mutator.Deposit(amount)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "deposit completed",
		"new_balance": newBalance.InexactFloat64(),
	})
}

// HandleMaxBuyQuantity returns how many shares of a ticker the current cash
// balance can buy at the latest price
func (h *Handler) HandleMaxBuyQuantity(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	maxQuantity, err := h.mutator.MaxBuyQuantity(ticker)
	if errors.Is(err, domain.ErrUnknownTicker) {
		h.writeError(w, http.StatusNotFound, "stock not found")
		return
	}
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	balances, err := h.service.Balances()
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":          ticker,
		"max_quantity":    maxQuantity,
		"current_balance": balances.Cash.InexactFloat64(),
	})
}

// HandleGetCashFlows returns the deposit history, most recent first
func (h *Handler) HandleGetCashFlows(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	flows, err := h.service.CashFlows(limit)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}

	result := make([]map[string]interface{}, 0, len(flows))
	for _, flow := range flows {
		result = append(result, map[string]interface{}{
			"id":            flow.ID,
			"kind":          flow.Kind,
			"amount":        flow.Amount.InexactFloat64(),
			"balance_after": flow.BalanceAfter.InexactFloat64(),
			"created_at":    flow.CreatedAt.Format(timeFormat),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"cash_flows": result})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
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
