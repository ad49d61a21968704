package portfolio

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
)

// avgCostPlaces is the fixed-point precision of the stored average cost.
// Eight fractional digits keeps the quantity-weighted mean exact for any
// realistic price scale while bounding the stored representation.
const avgCostPlaces = 8

// Ledger applies buys and sells to the position table. It mutates positions
// only: cash movements and trade records belong to the trade executor.
type Ledger struct {
	repo *Repository
	log  zerolog.Logger
}

// NewLedger creates a new position ledger
func NewLedger(repo *Repository, log zerolog.Logger) *Ledger {
	return &Ledger{
		repo: repo,
		log:  log.With().Str("component", "ledger").Logger(),
	}
}

// ApplyBuy blends a purchase into the position inside an open transaction.
// A first buy creates the position at the purchase price; subsequent buys
// move the average cost to the quantity-weighted mean of all purchases.
func (l *Ledger) ApplyBuy(tx *sql.Tx, ticker string, quantity int64, price decimal.Decimal) (domain.Position, error) {
	if quantity <= 0 {
		return domain.Position{}, domain.ErrInvalidQuantity
	}

	existing, err := l.repo.GetTx(tx, ticker)
	if err != nil {
		return domain.Position{}, domain.StoreError(err)
	}

	var pos domain.Position
	if existing == nil {
		pos = domain.Position{
			Ticker:   normalizeTicker(ticker),
			Quantity: quantity,
			AvgCost:  price,
		}
	} else {
		newQuantity := existing.Quantity + quantity
		// avg = (oldTotal + qty*price) / (oldQty + qty)
		newTotal := existing.TotalCost().Add(price.Mul(decimal.NewFromInt(quantity)))
		pos = domain.Position{
			Ticker:   existing.Ticker,
			Quantity: newQuantity,
			AvgCost:  newTotal.DivRound(decimal.NewFromInt(newQuantity), avgCostPlaces),
		}
	}

	if err := l.repo.UpsertTx(tx, pos); err != nil {
		return domain.Position{}, domain.StoreError(err)
	}

	l.log.Debug().
		Str("ticker", pos.Ticker).
		Int64("quantity", pos.Quantity).
		Str("avg_cost", pos.AvgCost.String()).
		Msg("Buy applied to ledger")

	return pos, nil
}

// ApplySell reduces a position inside an open transaction. The remaining
// cost basis is prorated so the average cost of the remaining shares is
// unchanged; selling the full quantity removes the row.
//
// Realized cost basis is discarded on full exit; there is no tax-lot
// history. A sell that exceeds the held quantity fails with
// ErrInsufficientHoldings and leaves the ledger untouched.
func (l *Ledger) ApplySell(tx *sql.Tx, ticker string, quantity int64, price decimal.Decimal) (domain.Position, error) {
	if quantity <= 0 {
		return domain.Position{}, domain.ErrInvalidQuantity
	}

	existing, err := l.repo.GetTx(tx, ticker)
	if err != nil {
		return domain.Position{}, domain.StoreError(err)
	}
	if existing == nil || existing.Quantity < quantity {
		return domain.Position{}, fmt.Errorf("%w: %s", domain.ErrInsufficientHoldings, normalizeTicker(ticker))
	}

	newQuantity := existing.Quantity - quantity
	if newQuantity == 0 {
		if err := l.repo.DeleteTx(tx, ticker); err != nil {
			return domain.Position{}, domain.StoreError(err)
		}

		l.log.Debug().Str("ticker", existing.Ticker).Msg("Position closed")
		return domain.Position{Ticker: existing.Ticker}, nil
	}

	// remainingTotal = oldTotal * newQty / oldQty; avg = remainingTotal / newQty,
	// which reduces to the old average cost held at fixed precision
	remainingTotal := existing.TotalCost().
		Mul(decimal.NewFromInt(newQuantity)).
		DivRound(decimal.NewFromInt(existing.Quantity), avgCostPlaces)

	pos := domain.Position{
		Ticker:   existing.Ticker,
		Quantity: newQuantity,
		AvgCost:  remainingTotal.DivRound(decimal.NewFromInt(newQuantity), avgCostPlaces),
	}

	if err := l.repo.UpsertTx(tx, pos); err != nil {
		return domain.Position{}, domain.StoreError(err)
	}

	l.log.Debug().
		Str("ticker", pos.Ticker).
		Int64("quantity", pos.Quantity).
		Str("avg_cost", pos.AvgCost.String()).
		Msg("Sell applied to ledger")

	return pos, nil
}
