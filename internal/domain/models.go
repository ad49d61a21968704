// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide represents the direction of a trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Position represents an aggregated holding of one ticker.
// TotalCost is always derived from quantity and average cost, never stored,
// so the two figures cannot drift apart.
type Position struct {
	Ticker      string          `json:"ticker"`
	Quantity    int64           `json:"quantity"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	LastUpdated time.Time       `json:"last_updated"`
}

// TotalCost returns the position's cost basis (quantity x average cost).
func (p Position) TotalCost() decimal.Decimal {
	return p.AvgCost.Mul(decimal.NewFromInt(p.Quantity))
}

// Holding is a position enriched with market data for API responses.
type Holding struct {
	Ticker       string          `json:"ticker"`
	Name         string          `json:"name"`
	Quantity     int64           `json:"quantity"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitPct    decimal.Decimal `json:"profit_pct"`
	PriceStale   bool            `json:"price_stale"` // true when avg cost was substituted for a missing quote
}

// Trade represents an executed trade. Immutable once created.
type Trade struct {
	ID          string          `json:"id"`
	Ticker      string          `json:"ticker"`
	Side        TradeSide       `json:"side"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// Quote represents the latest market data for a ticker
type Quote struct {
	Ticker        string          `json:"ticker"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePct     decimal.Decimal `json:"change_pct"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Volume        int64           `json:"volume"`
}

// AccountSummary aggregates account state for the dashboard.
// InitialBalance is cumulative deposited capital, not just day-one capital.
type AccountSummary struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	TotalAssets    decimal.Decimal `json:"total_assets"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
	ProfitPct      decimal.Decimal `json:"profit_pct"`
}

// CashFlowDeposit is the kind recorded for cash added to the account
const CashFlowDeposit = "deposit"

// CashFlow records a cash movement on the account (currently deposits only)
type CashFlow struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
