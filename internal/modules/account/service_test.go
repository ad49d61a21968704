package account

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiwwang/MoneyPot/internal/domain"

	_ "modernc.org/sqlite"
)

type stubPositions struct {
	positions []domain.Position
}

func (s stubPositions) GetAll() ([]domain.Position, error) {
	return s.positions, nil
}

type stubQuotes struct {
	prices map[string]decimal.Decimal
}

func (s stubQuotes) Latest(ticker string) (domain.Quote, error) {
	price, ok := s.prices[ticker]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrUnknownTicker, ticker)
	}
	return domain.Quote{Ticker: ticker, CurrentPrice: price}, nil
}

func setupAccountTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE account (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			cash_balance    TEXT NOT NULL,
			initial_balance TEXT NOT NULL
		);
		CREATE TABLE cash_flows (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			amount        TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func TestRepository_EnsureSeeded_IsIdempotent(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.EnsureSeeded(decimal.NewFromInt(100000)))
	// Second seed with a different amount must not overwrite
	require.NoError(t, repo.EnsureSeeded(decimal.NewFromInt(5)))

	balances, err := repo.Get()
	require.NoError(t, err)
	assert.True(t, balances.Cash.Equal(decimal.NewFromInt(100000)))
	assert.True(t, balances.InitialBalance.Equal(decimal.NewFromInt(100000)))
}

func TestService_Summary_ValuesPositionsAtMarket(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.EnsureSeeded(decimal.NewFromInt(1000)))

	positions := stubPositions{positions: []domain.Position{
		{Ticker: "GLE FP", Quantity: 10, AvgCost: decimal.NewFromInt(20)},
	}}
	quotes := stubQuotes{prices: map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(25),
	}}

	service := NewService(repo, positions, quotes, zerolog.Nop())

	summary, err := service.Summary()
	require.NoError(t, err)
	assert.True(t, summary.TotalAssets.Equal(decimal.NewFromInt(1250)), "got %s", summary.TotalAssets)
	assert.True(t, summary.TotalProfit.Equal(decimal.NewFromInt(250)))
	assert.True(t, summary.ProfitPct.Equal(decimal.NewFromInt(25)))
}

func TestService_Summary_FallsBackToAverageCost(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.EnsureSeeded(decimal.NewFromInt(1000)))

	// No quote for the held ticker: the position is valued at its average
	// cost instead of failing the whole summary
	positions := stubPositions{positions: []domain.Position{
		{Ticker: "KPN NA", Quantity: 4, AvgCost: decimal.NewFromInt(50)},
	}}
	service := NewService(repo, positions, stubQuotes{}, zerolog.Nop())

	summary, err := service.Summary()
	require.NoError(t, err)
	assert.True(t, summary.TotalAssets.Equal(decimal.NewFromInt(1200)), "got %s", summary.TotalAssets)
	assert.True(t, summary.TotalProfit.Equal(decimal.NewFromInt(200)))
}

func TestService_Summary_ZeroInitialBalance(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.EnsureSeeded(decimal.Zero))

	service := NewService(repo, stubPositions{}, stubQuotes{}, zerolog.Nop())

	// An account that never received a deposit reports zero profit
	// percentage, not a division error
	summary, err := service.Summary()
	require.NoError(t, err)
	assert.True(t, summary.ProfitPct.IsZero())
	assert.True(t, summary.TotalProfit.IsZero())
}
