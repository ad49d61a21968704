package trading

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiwwang/MoneyPot/internal/domain"
	"github.com/kaiwwang/MoneyPot/internal/modules/account"
	"github.com/kaiwwang/MoneyPot/internal/modules/portfolio"

	_ "modernc.org/sqlite"
)

// stubQuotes serves fixed prices; any other ticker is unknown
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

func setupExecutorTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE account (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			cash_balance    TEXT NOT NULL,
			initial_balance TEXT NOT NULL
		);
		CREATE TABLE positions (
			ticker        TEXT PRIMARY KEY,
			quantity      INTEGER NOT NULL CHECK (quantity > 0),
			avg_cost      TEXT NOT NULL,
			current_price TEXT,
			last_updated  INTEGER
		);
		CREATE TABLE trades (
			id           TEXT PRIMARY KEY,
			ticker       TEXT NOT NULL,
			side         TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
			quantity     INTEGER NOT NULL CHECK (quantity > 0),
			price        TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			executed_at  INTEGER NOT NULL
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

func newTestExecutor(t *testing.T, cash string, prices map[string]decimal.Decimal) (*Executor, *account.Repository, *portfolio.Repository) {
	db := setupExecutorTestDB(t)
	log := zerolog.Nop()

	accountRepo := account.NewRepository(db, log)
	require.NoError(t, accountRepo.EnsureSeeded(decimal.RequireFromString(cash)))

	positionRepo := portfolio.NewRepository(db, log)
	ledger := portfolio.NewLedger(positionRepo, log)
	tradeRepo := NewRepository(db, log)

	executor := NewExecutor(db, ledger, tradeRepo, accountRepo, stubQuotes{prices: prices}, log)
	return executor, accountRepo, positionRepo
}

func TestExecutor_Buy_DebitsCashAndCreatesPosition(t *testing.T) {
	executor, accountRepo, positionRepo := newTestExecutor(t, "1000", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(25),
	})

	trade, err := executor.Buy("GLE FP", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeSideBuy, trade.Side)
	assert.True(t, trade.TotalAmount.Equal(decimal.NewFromInt(250)))
	assert.NotEmpty(t, trade.ID)

	balances, err := accountRepo.Get()
	require.NoError(t, err)
	assert.True(t, balances.Cash.Equal(decimal.NewFromInt(750)), "got cash %s", balances.Cash)

	pos, err := positionRepo.Get("GLE FP")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, int64(10), pos.Quantity)
}

func TestExecutor_Buy_ValidationOrder(t *testing.T) {
	executor, _, _ := newTestExecutor(t, "100", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(25),
	})

	// Unknown ticker wins even when the quantity is also invalid
	_, err := executor.Buy("NOPE", -1, nil)
	assert.ErrorIs(t, err, domain.ErrUnknownTicker)

	_, err = executor.Buy("GLE FP", 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = executor.Buy("GLE FP", 5, nil) // 125 > 100
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestExecutor_Buy_FailureLeavesNoTrace(t *testing.T) {
	executor, accountRepo, positionRepo := newTestExecutor(t, "100", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(25),
	})

	_, err := executor.Buy("GLE FP", 5, nil)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balances, err := accountRepo.Get()
	require.NoError(t, err)
	assert.True(t, balances.Cash.Equal(decimal.NewFromInt(100)))

	pos, err := positionRepo.Get("GLE FP")
	require.NoError(t, err)
	assert.Nil(t, pos)

	trades, err := executor.History(10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestExecutor_Sell_ValidationOrder(t *testing.T) {
	executor, _, _ := newTestExecutor(t, "1000", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(25),
	})

	_, err := executor.Sell("NOPE", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownTicker)

	_, err = executor.Sell("GLE FP", -3)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = executor.Sell("GLE FP", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
}

func TestExecutor_BuyThenSell_RestoresCash(t *testing.T) {
	executor, accountRepo, positionRepo := newTestExecutor(t, "1000", map[string]decimal.Decimal{
		"KPN NA": decimal.RequireFromString("3.33"),
	})

	_, err := executor.Buy("KPN NA", 7, nil)
	require.NoError(t, err)

	_, err = executor.Sell("KPN NA", 7)
	require.NoError(t, err)

	// Same price both ways: cash must land exactly where it started
	balances, err := accountRepo.Get()
	require.NoError(t, err)
	assert.True(t, balances.Cash.Equal(decimal.NewFromInt(1000)), "got cash %s", balances.Cash)

	pos, err := positionRepo.Get("KPN NA")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestExecutor_Sell_PartialKeepsAverageCost(t *testing.T) {
	executor, _, positionRepo := newTestExecutor(t, "1000", map[string]decimal.Decimal{
		"ROVI SM": decimal.NewFromInt(20),
	})

	override := decimal.NewFromInt(10)
	_, err := executor.Buy("ROVI SM", 10, &override)
	require.NoError(t, err)

	_, err = executor.Sell("ROVI SM", 4)
	require.NoError(t, err)

	pos, err := positionRepo.Get("ROVI SM")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, int64(6), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(10)), "got avg cost %s", pos.AvgCost)
}

func TestExecutor_Sell_AlwaysExecutesAtMarketPrice(t *testing.T) {
	executor, accountRepo, _ := newTestExecutor(t, "1000", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(10),
	})

	// Bought at an override of 1, sold at the market's 10: the credit is
	// the market total, never a client-chosen figure
	override := decimal.NewFromInt(1)
	_, err := executor.Buy("GLE FP", 1, &override)
	require.NoError(t, err)

	trade, err := executor.Sell("GLE FP", 1)
	require.NoError(t, err)
	assert.True(t, trade.Price.Equal(decimal.NewFromInt(10)))
	assert.True(t, trade.TotalAmount.Equal(decimal.NewFromInt(10)))

	balances, err := accountRepo.Get()
	require.NoError(t, err)
	assert.True(t, balances.Cash.Equal(decimal.NewFromInt(1009)), "got cash %s", balances.Cash)
}

func TestExecutor_TradesRejectNonPositiveMarketPrice(t *testing.T) {
	executor, _, _ := newTestExecutor(t, "1000", map[string]decimal.Decimal{
		"GLE FP": decimal.Zero,
	})

	_, err := executor.Buy("GLE FP", 1, nil)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)

	_, err = executor.Sell("GLE FP", 1)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestExecutor_Buy_PriceOverride(t *testing.T) {
	executor, accountRepo, _ := newTestExecutor(t, "1000", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(25),
	})

	override := decimal.RequireFromString("20.50")
	trade, err := executor.Buy("GLE FP", 2, &override)
	require.NoError(t, err)
	assert.True(t, trade.Price.Equal(override))
	assert.True(t, trade.TotalAmount.Equal(decimal.NewFromInt(41)))

	balances, err := accountRepo.Get()
	require.NoError(t, err)
	assert.True(t, balances.Cash.Equal(decimal.NewFromInt(959)))

	// Override on an unknown ticker still fails the ticker check
	_, err = executor.Buy("NOPE", 1, &override)
	assert.ErrorIs(t, err, domain.ErrUnknownTicker)

	negative := decimal.NewFromInt(-1)
	_, err = executor.Buy("GLE FP", 1, &negative)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	// Quantity is checked before the override, so a bad quantity wins
	_, err = executor.Buy("GLE FP", 0, &negative)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestExecutor_Deposit_RaisesBothBalances(t *testing.T) {
	executor, accountRepo, _ := newTestExecutor(t, "500", nil)

	newBalance, err := executor.Deposit(decimal.NewFromInt(250))
	require.NoError(t, err)
	assert.True(t, newBalance.Equal(decimal.NewFromInt(750)))

	// Deposits raise contributed capital too, so they never read as profit
	balances, err := accountRepo.Get()
	require.NoError(t, err)
	assert.True(t, balances.Cash.Equal(decimal.NewFromInt(750)))
	assert.True(t, balances.InitialBalance.Equal(decimal.NewFromInt(750)))

	flows, err := accountRepo.CashFlows(10)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, domain.CashFlowDeposit, flows[0].Kind)
	assert.True(t, flows[0].Amount.Equal(decimal.NewFromInt(250)))
}

func TestExecutor_Deposit_SequentialDepositsAccumulate(t *testing.T) {
	executor, accountRepo, _ := newTestExecutor(t, "500", nil)

	_, err := executor.Deposit(decimal.NewFromInt(100))
	require.NoError(t, err)
	newBalance, err := executor.Deposit(decimal.RequireFromString("40.50"))
	require.NoError(t, err)
	assert.True(t, newBalance.Equal(decimal.RequireFromString("640.50")))

	// Two deposits land the same place as one deposit of their sum
	balances, err := accountRepo.Get()
	require.NoError(t, err)
	assert.True(t, balances.Cash.Equal(decimal.RequireFromString("640.50")))
	assert.True(t, balances.InitialBalance.Equal(decimal.RequireFromString("640.50")))

	flows, err := accountRepo.CashFlows(10)
	require.NoError(t, err)
	require.Len(t, flows, 2)
}

func TestExecutor_Deposit_RejectsNonPositiveAmount(t *testing.T) {
	executor, _, _ := newTestExecutor(t, "500", nil)

	_, err := executor.Deposit(decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = executor.Deposit(decimal.NewFromInt(-10))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestExecutor_MaxBuyQuantity(t *testing.T) {
	executor, _, _ := newTestExecutor(t, "100", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(30),
		"KPN NA": decimal.RequireFromString("0.00"),
	})

	max, err := executor.MaxBuyQuantity("GLE FP")
	require.NoError(t, err)
	assert.Equal(t, int64(3), max)

	// A zero price can never be afforded into a position
	max, err = executor.MaxBuyQuantity("KPN NA")
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	_, err = executor.MaxBuyQuantity("NOPE")
	assert.ErrorIs(t, err, domain.ErrUnknownTicker)
}

func TestExecutor_History_NewestFirstWithUniqueIDs(t *testing.T) {
	executor, _, _ := newTestExecutor(t, "10000", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(10),
	})

	var ids []string
	for i := 0; i < 5; i++ {
		trade, err := executor.Buy("GLE FP", 1, nil)
		require.NoError(t, err)
		ids = append(ids, trade.ID)
	}

	// ULIDs are unique and increase with execution order
	seen := make(map[string]bool)
	for i, id := range ids {
		assert.False(t, seen[id], "duplicate trade ID %s", id)
		seen[id] = true
		if i > 0 {
			assert.Greater(t, id, ids[i-1])
		}
	}

	trades, err := executor.History(100)
	require.NoError(t, err)
	require.Len(t, trades, 5)
	for i, trade := range trades {
		assert.Equal(t, ids[len(ids)-1-i], trade.ID, "history not newest-first at index %d", i)
	}
}

func TestExecutor_History_RespectsLimit(t *testing.T) {
	executor, _, _ := newTestExecutor(t, "10000", map[string]decimal.Decimal{
		"GLE FP": decimal.NewFromInt(10),
	})

	for i := 0; i < 4; i++ {
		_, err := executor.Buy("GLE FP", 1, nil)
		require.NoError(t, err)
	}

	trades, err := executor.History(2)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}
