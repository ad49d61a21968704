package trading

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/database"
	"github.com/kaiwwang/MoneyPot/internal/domain"
	"github.com/kaiwwang/MoneyPot/internal/modules/account"
	"github.com/kaiwwang/MoneyPot/internal/modules/portfolio"
)

// QuoteProvider supplies the latest quote for a ticker.
// Defined here to avoid an import cycle with the market module.
type QuoteProvider interface {
	Latest(ticker string) (domain.Quote, error)
}

// Executor executes trades and deposits. Every mutation runs under a single
// mutex and a single database transaction, so cash, positions and the trade
// journal can never observe each other mid-update.
type Executor struct {
	mu      sync.Mutex
	db      *sql.DB
	ledger  *portfolio.Ledger
	trades  *Repository
	account *account.Repository
	quotes  QuoteProvider
	log     zerolog.Logger
}

// NewExecutor creates a new trade executor
func NewExecutor(db *sql.DB, ledger *portfolio.Ledger, trades *Repository, acct *account.Repository, quotes QuoteProvider, log zerolog.Logger) *Executor {
	return &Executor{
		db:      db,
		ledger:  ledger,
		trades:  trades,
		account: acct,
		quotes:  quotes,
		log:     log.With().Str("service", "executor").Logger(),
	}
}

// Buy purchases quantity shares of ticker at the latest market price, or at
// priceOverride when one is supplied (limit-style execution). Cash is
// debited, the position blended, and the trade journaled in one transaction.
//
// Validation order is fixed: unknown ticker, then invalid quantity, then
// insufficient funds.
func (e *Executor) Buy(ticker string, quantity int64, priceOverride *decimal.Decimal) (domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	quote, err := e.quotes.Latest(ticker)
	if err != nil {
		return domain.Trade{}, err
	}
	if quantity <= 0 {
		return domain.Trade{}, domain.ErrInvalidQuantity
	}

	price := quote.CurrentPrice
	if priceOverride != nil {
		if !priceOverride.IsPositive() {
			return domain.Trade{}, fmt.Errorf("%w: price override must be positive", domain.ErrInvalidAmount)
		}
		price = *priceOverride
	}
	if !price.IsPositive() {
		return domain.Trade{}, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, normalizeTicker(ticker))
	}

	total := price.Mul(decimal.NewFromInt(quantity))
	trade := e.newTrade(ticker, domain.TradeSideBuy, quantity, price, total)

	err = database.WithTransaction(e.db, func(tx *sql.Tx) error {
		balances, err := e.account.GetTx(tx)
		if err != nil {
			return domain.StoreError(err)
		}
		if balances.Cash.LessThan(total) {
			return fmt.Errorf("%w: need %s, have %s",
				domain.ErrInsufficientFunds, total.StringFixed(2), balances.Cash.StringFixed(2))
		}

		if _, err := e.ledger.ApplyBuy(tx, ticker, quantity, price); err != nil {
			return err
		}
		if err := e.account.UpdateCashTx(tx, balances.Cash.Sub(total)); err != nil {
			return domain.StoreError(err)
		}
		if err := e.trades.InsertTx(tx, trade); err != nil {
			return domain.StoreError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Trade{}, err
	}

	e.log.Info().
		Str("trade_id", trade.ID).
		Str("ticker", trade.Ticker).
		Int64("quantity", quantity).
		Str("price", price.String()).
		Str("total", total.String()).
		Msg("Buy executed")

	return trade, nil
}

// Sell sells quantity shares of ticker, always at the latest market price.
// Unlike Buy there is no price override: a client-chosen sell price would
// credit arbitrary cash. The position is reduced, cash credited, and the
// trade journaled in one transaction.
//
// Validation order is fixed: unknown ticker, then invalid quantity, then
// insufficient holdings.
func (e *Executor) Sell(ticker string, quantity int64) (domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	quote, err := e.quotes.Latest(ticker)
	if err != nil {
		return domain.Trade{}, err
	}
	if quantity <= 0 {
		return domain.Trade{}, domain.ErrInvalidQuantity
	}

	price := quote.CurrentPrice
	if !price.IsPositive() {
		return domain.Trade{}, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, normalizeTicker(ticker))
	}

	total := price.Mul(decimal.NewFromInt(quantity))
	trade := e.newTrade(ticker, domain.TradeSideSell, quantity, price, total)

	err = database.WithTransaction(e.db, func(tx *sql.Tx) error {
		if _, err := e.ledger.ApplySell(tx, ticker, quantity, price); err != nil {
			return err
		}

		balances, err := e.account.GetTx(tx)
		if err != nil {
			return domain.StoreError(err)
		}
		if err := e.account.UpdateCashTx(tx, balances.Cash.Add(total)); err != nil {
			return domain.StoreError(err)
		}
		if err := e.trades.InsertTx(tx, trade); err != nil {
			return domain.StoreError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Trade{}, err
	}

	e.log.Info().
		Str("trade_id", trade.ID).
		Str("ticker", trade.Ticker).
		Int64("quantity", quantity).
		Str("price", price.String()).
		Str("total", total.String()).
		Msg("Sell executed")

	return trade, nil
}

// Deposit adds cash to the account and raises the cumulative deposited
// capital by the same amount, so deposits never show up as profit. Returns
// the new cash balance.
func (e *Executor) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	var newCash decimal.Decimal
	err := database.WithTransaction(e.db, func(tx *sql.Tx) error {
		balances, err := e.account.DepositTx(tx, amount)
		if err != nil {
			return domain.StoreError(err)
		}
		if _, err := e.account.InsertCashFlowTx(tx, domain.CashFlowDeposit, amount, balances.Cash); err != nil {
			return domain.StoreError(err)
		}
		newCash = balances.Cash
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	e.log.Info().
		Str("amount", amount.String()).
		Str("new_balance", newCash.String()).
		Msg("Deposit completed")

	return newCash, nil
}

// MaxBuyQuantity returns the largest whole number of shares of ticker the
// current cash balance can buy at the latest price
func (e *Executor) MaxBuyQuantity(ticker string) (int64, error) {
	quote, err := e.quotes.Latest(ticker)
	if err != nil {
		return 0, err
	}
	if !quote.CurrentPrice.IsPositive() {
		return 0, nil
	}

	balances, err := e.account.Get()
	if err != nil {
		return 0, domain.StoreError(err)
	}

	return balances.Cash.Div(quote.CurrentPrice).IntPart(), nil
}

// History returns the most recent trades, newest first
func (e *Executor) History(limit int) ([]domain.Trade, error) {
	trades, err := e.trades.History(limit)
	if err != nil {
		return nil, domain.StoreError(err)
	}
	return trades, nil
}

// HistoryByTicker returns the most recent trades for one ticker, newest first
func (e *Executor) HistoryByTicker(ticker string, limit int) ([]domain.Trade, error) {
	trades, err := e.trades.HistoryByTicker(ticker, limit)
	if err != nil {
		return nil, domain.StoreError(err)
	}
	return trades, nil
}

// Helper methods

func (e *Executor) newTrade(ticker string, side domain.TradeSide, quantity int64, price, total decimal.Decimal) domain.Trade {
	now := time.Now().UTC()
	return domain.Trade{
		ID:          newTradeID(now),
		Ticker:      normalizeTicker(ticker),
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		TotalAmount: total,
		ExecutedAt:  now,
	}
}
