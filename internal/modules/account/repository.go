// Package account holds the cash account: current balance, cumulative
// deposited capital, and the deposit audit trail.
package account

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
)

// Balances is the persistent account state. InitialBalance accumulates
// every deposit, so profit is always measured against contributed capital.
type Balances struct {
	Cash           decimal.Decimal
	InitialBalance decimal.Decimal
}

// Repository handles account database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new account repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "account").Logger(),
	}
}

// EnsureSeeded creates the single account row on first start. An existing
// row is left untouched.
func (r *Repository) EnsureSeeded(initialBalance decimal.Decimal) error {
	query := `
		INSERT INTO account (id, cash_balance, initial_balance)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	res, err := r.db.Exec(query, initialBalance.String(), initialBalance.String())
	if err != nil {
		return fmt.Errorf("failed to seed account: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.log.Info().Str("initial_balance", initialBalance.String()).Msg("Account seeded")
	}

	return nil
}

// Get returns the account balances
func (r *Repository) Get() (Balances, error) {
	return getBalances(r.db.QueryRow)
}

// GetTx is Get inside an open transaction
func (r *Repository) GetTx(tx *sql.Tx) (Balances, error) {
	return getBalances(tx.QueryRow)
}

func getBalances(queryRow func(query string, args ...interface{}) *sql.Row) (Balances, error) {
	var cash, initial string
	err := queryRow("SELECT cash_balance, initial_balance FROM account WHERE id = 1").Scan(&cash, &initial)
	if errors.Is(err, sql.ErrNoRows) {
		return Balances{}, fmt.Errorf("account row missing, database not seeded")
	}
	if err != nil {
		return Balances{}, fmt.Errorf("failed to get account: %w", err)
	}

	var b Balances
	if b.Cash, err = decimal.NewFromString(cash); err != nil {
		return Balances{}, fmt.Errorf("invalid cash_balance %q: %w", cash, err)
	}
	if b.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return Balances{}, fmt.Errorf("invalid initial_balance %q: %w", initial, err)
	}

	return b, nil
}

// UpdateCashTx replaces the cash balance inside an open transaction
func (r *Repository) UpdateCashTx(tx *sql.Tx, cash decimal.Decimal) error {
	_, err := tx.Exec("UPDATE account SET cash_balance = ? WHERE id = 1", cash.String())
	if err != nil {
		return fmt.Errorf("failed to update cash balance: %w", err)
	}
	return nil
}

// DepositTx raises both the cash balance and the cumulative initial balance
// inside an open transaction, returning the balances after the deposit.
func (r *Repository) DepositTx(tx *sql.Tx, amount decimal.Decimal) (Balances, error) {
	balances, err := r.GetTx(tx)
	if err != nil {
		return Balances{}, err
	}

	balances.Cash = balances.Cash.Add(amount)
	balances.InitialBalance = balances.InitialBalance.Add(amount)

	_, err = tx.Exec(
		"UPDATE account SET cash_balance = ?, initial_balance = ? WHERE id = 1",
		balances.Cash.String(), balances.InitialBalance.String(),
	)
	if err != nil {
		return Balances{}, fmt.Errorf("failed to apply deposit: %w", err)
	}

	return balances, nil
}

// InsertCashFlowTx appends a cash movement record inside an open transaction
func (r *Repository) InsertCashFlowTx(tx *sql.Tx, kind string, amount, balanceAfter decimal.Decimal) (domain.CashFlow, error) {
	flow := domain.CashFlow{
		ID:           uuid.New().String(),
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := tx.Exec(
		"INSERT INTO cash_flows (id, kind, amount, balance_after, created_at) VALUES (?, ?, ?, ?, ?)",
		flow.ID, flow.Kind, flow.Amount.String(), flow.BalanceAfter.String(), flow.CreatedAt.Unix(),
	)
	if err != nil {
		return domain.CashFlow{}, fmt.Errorf("failed to insert cash flow: %w", err)
	}

	return flow, nil
}

// CashFlows returns the cash movement history, most recent first
func (r *Repository) CashFlows(limit int) ([]domain.CashFlow, error) {
	query := `
		SELECT id, kind, amount, balance_after, created_at FROM cash_flows
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flows: %w", err)
	}
	defer rows.Close()

	var flows []domain.CashFlow
	for rows.Next() {
		var flow domain.CashFlow
		var amount, balanceAfter string
		var createdAt int64

		if err := rows.Scan(&flow.ID, &flow.Kind, &amount, &balanceAfter, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow: %w", err)
		}

		if flow.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid cash flow amount %q: %w", amount, err)
		}
		if flow.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
			return nil, fmt.Errorf("invalid cash flow balance %q: %w", balanceAfter, err)
		}
		flow.CreatedAt = time.Unix(createdAt, 0).UTC()

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash flows: %w", err)
	}

	return flows, nil
}
