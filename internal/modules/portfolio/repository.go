// Package portfolio maintains the position ledger: one row per held ticker
// with its quantity and weighted-average cost.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so repository reads and
// writes can participate in the trade executor's transaction.
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// positionsColumns is the list of columns for the positions table.
// Column order must match scanPosition().
const positionsColumns = `ticker, quantity, avg_cost, last_updated`

// Repository handles position database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new position repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// Get returns the position for a ticker, or nil when none is held
func (r *Repository) Get(ticker string) (*domain.Position, error) {
	return get(r.db, ticker)
}

// GetTx is Get inside an open transaction
func (r *Repository) GetTx(tx *sql.Tx, ticker string) (*domain.Position, error) {
	return get(tx, ticker)
}

func get(q querier, ticker string) (*domain.Position, error) {
	query := `SELECT ` + positionsColumns + ` FROM positions WHERE ticker = ?`

	row := q.QueryRow(query, normalizeTicker(ticker))
	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	return &pos, nil
}

// GetAll returns all positions ordered by ticker ascending
func (r *Repository) GetAll() ([]domain.Position, error) {
	query := `SELECT ` + positionsColumns + ` FROM positions ORDER BY ticker`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPositionFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// UpsertTx writes a position inside an open transaction. Quantity must be
// positive; a closed position is removed with DeleteTx instead.
func (r *Repository) UpsertTx(tx *sql.Tx, pos domain.Position) error {
	if pos.Quantity <= 0 {
		return fmt.Errorf("refusing to upsert position with quantity %d", pos.Quantity)
	}

	query := `
		INSERT INTO positions (ticker, quantity, avg_cost, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			quantity = excluded.quantity,
			avg_cost = excluded.avg_cost,
			last_updated = excluded.last_updated
	`

	_, err := tx.Exec(query,
		normalizeTicker(pos.Ticker),
		pos.Quantity,
		pos.AvgCost.String(),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	return nil
}

// DeleteTx removes a position inside an open transaction
func (r *Repository) DeleteTx(tx *sql.Tx, ticker string) error {
	_, err := tx.Exec("DELETE FROM positions WHERE ticker = ?", normalizeTicker(ticker))
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// UpdateCachedPrice stores the latest known price for a held ticker. The
// cached value is display-only; valuations re-read the stocks table.
func (r *Repository) UpdateCachedPrice(ticker string, price decimal.Decimal) error {
	_, err := r.db.Exec(
		"UPDATE positions SET current_price = ?, last_updated = ? WHERE ticker = ?",
		price.String(), time.Now().Unix(), normalizeTicker(ticker),
	)
	if err != nil {
		return fmt.Errorf("failed to update cached price: %w", err)
	}
	return nil
}

// Helper methods

func scanPosition(row *sql.Row) (domain.Position, error) {
	var pos domain.Position
	var avgCost string
	var lastUpdated sql.NullInt64

	if err := row.Scan(&pos.Ticker, &pos.Quantity, &avgCost, &lastUpdated); err != nil {
		return pos, err
	}

	return finishPosition(pos, avgCost, lastUpdated)
}

func scanPositionFromRows(rows *sql.Rows) (domain.Position, error) {
	var pos domain.Position
	var avgCost string
	var lastUpdated sql.NullInt64

	if err := rows.Scan(&pos.Ticker, &pos.Quantity, &avgCost, &lastUpdated); err != nil {
		return pos, err
	}

	return finishPosition(pos, avgCost, lastUpdated)
}

func finishPosition(pos domain.Position, avgCost string, lastUpdated sql.NullInt64) (domain.Position, error) {
	parsed, err := decimal.NewFromString(avgCost)
	if err != nil {
		return pos, fmt.Errorf("invalid avg_cost %q for %s: %w", avgCost, pos.Ticker, err)
	}
	pos.AvgCost = parsed

	if lastUpdated.Valid {
		pos.LastUpdated = time.Unix(lastUpdated.Int64, 0).UTC()
	}

	return pos, nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
