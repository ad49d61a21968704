// Package market supplies price quotes from the stocks table.
package market

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Candle is one row of daily market data for a ticker
type Candle struct {
	Ticker string
	Date   string // YYYY-MM-DD
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// stocksColumns is the list of columns for the stocks table.
// Used to avoid SELECT * which can break when the schema changes.
// Column order must match scanCandle().
const stocksColumns = `ticker, date, open, high, low, close, volume`

// Repository handles market data database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new market data repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "market").Logger(),
	}
}

// LatestTwo returns the newest two candles for a ticker, newest first.
// The second candle, when present, is the previous close used for the
// change calculation.
func (r *Repository) LatestTwo(ticker string) ([]Candle, error) {
	return r.latest(ticker, 2)
}

// History returns up to days candles for a ticker, newest first
func (r *Repository) History(ticker string, days int) ([]Candle, error) {
	return r.latest(ticker, days)
}

func (r *Repository) latest(ticker string, limit int) ([]Candle, error) {
	query := `
		SELECT ` + stocksColumns + ` FROM stocks
		WHERE ticker = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, normalizeTicker(ticker), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var candles []Candle
	for rows.Next() {
		candle, err := scanCandle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, candle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	return candles, nil
}

// AllTickers returns all distinct tickers, ascending
func (r *Repository) AllTickers() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT ticker FROM stocks ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return tickers, nil
}

// HasTicker reports whether any market data exists for the ticker
func (r *Repository) HasTicker(ticker string) (bool, error) {
	var exists int
	err := r.db.QueryRow("SELECT 1 FROM stocks WHERE ticker = ? LIMIT 1", normalizeTicker(ticker)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check ticker existence: %w", err)
	}
	return true, nil
}

// InsertCandle upserts one candle. Re-importing a (ticker, date) pair
// replaces the previous row.
func (r *Repository) InsertCandle(c Candle) error {
	query := `
		INSERT INTO stocks (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`

	_, err := r.db.Exec(query,
		normalizeTicker(c.Ticker),
		c.Date,
		c.Open.String(),
		c.High.String(),
		c.Low.String(),
		c.Close.String(),
		c.Volume,
	)
	if err != nil {
		return fmt.Errorf("failed to insert candle: %w", err)
	}

	return nil
}

func scanCandle(rows *sql.Rows) (Candle, error) {
	var c Candle
	var open, high, low, close sql.NullString
	var volume sql.NullInt64

	if err := rows.Scan(&c.Ticker, &c.Date, &open, &high, &low, &close, &volume); err != nil {
		return c, err
	}

	var err error
	if c.Close, err = parseDecimal(close); err != nil {
		return c, fmt.Errorf("invalid close for %s on %s: %w", c.Ticker, c.Date, err)
	}
	// Open/high/low are optional in seed data; a parse failure on them is not fatal
	c.Open, _ = parseDecimal(open)
	c.High, _ = parseDecimal(high)
	c.Low, _ = parseDecimal(low)
	if volume.Valid {
		c.Volume = volume.Int64
	}

	return c, nil
}

func parseDecimal(s sql.NullString) (decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s.String)
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
