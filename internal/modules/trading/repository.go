// Package trading executes buy and sell orders against the account and the
// position ledger, and records every execution in the trade journal.
package trading

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
)

// tradesColumns is the list of columns for the trades table.
// Column order must match scanTradeFromRows().
const tradesColumns = `id, ticker, side, quantity, price, total_amount, executed_at`

// Repository handles trade journal database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new trade repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "trade").Logger(),
	}
}

// InsertTx appends a trade to the journal inside an open transaction.
// Trades are append-only; there is no update or delete path.
func (r *Repository) InsertTx(tx *sql.Tx, trade domain.Trade) error {
	query := fmt.Sprintf(`INSERT INTO trades (%s) VALUES (?, ?, ?, ?, ?, ?, ?)`, tradesColumns)

	_, err := tx.Exec(query,
		trade.ID,
		trade.Ticker,
		string(trade.Side),
		trade.Quantity,
		trade.Price.String(),
		trade.TotalAmount.String(),
		trade.ExecutedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// History returns the most recent trades, newest first. ULIDs break ties
// within the same second so insertion order is preserved.
func (r *Repository) History(limit int) ([]domain.Trade, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM trades
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, tradesColumns)

	return r.queryTrades(query, limit)
}

// HistoryByTicker returns the most recent trades for one ticker, newest first
func (r *Repository) HistoryByTicker(ticker string, limit int) ([]domain.Trade, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM trades
		WHERE ticker = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, tradesColumns)

	return r.queryTrades(query, normalizeTicker(ticker), limit)
}

// Count returns the total number of journaled trades
func (r *Repository) Count() (int64, error) {
	var count int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// Helper methods

func (r *Repository) queryTrades(query string, args ...interface{}) ([]domain.Trade, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTradeFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func scanTradeFromRows(rows *sql.Rows) (domain.Trade, error) {
	var trade domain.Trade
	var side, price, totalAmount string
	var executedAt int64

	if err := rows.Scan(&trade.ID, &trade.Ticker, &side, &trade.Quantity, &price, &totalAmount, &executedAt); err != nil {
		return trade, err
	}

	trade.Side = domain.TradeSide(side)
	trade.ExecutedAt = time.Unix(executedAt, 0).UTC()

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return trade, fmt.Errorf("invalid price %q for trade %s: %w", price, trade.ID, err)
	}
	trade.Price = parsed

	parsed, err = decimal.NewFromString(totalAmount)
	if err != nil {
		return trade, fmt.Errorf("invalid total_amount %q for trade %s: %w", totalAmount, trade.ID, err)
	}
	trade.TotalAmount = parsed

	return trade, nil
}
