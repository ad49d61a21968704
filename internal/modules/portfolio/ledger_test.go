package portfolio

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiwwang/MoneyPot/internal/domain"

	_ "modernc.org/sqlite"
)

func setupLedgerTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE positions (
			ticker        TEXT PRIMARY KEY,
			quantity      INTEGER NOT NULL CHECK (quantity > 0),
			avg_cost      TEXT NOT NULL,
			current_price TEXT,
			last_updated  INTEGER
		)
	`)
	require.NoError(t, err)

	return db
}

func newTestLedger(t *testing.T) (*Ledger, *Repository, *sql.DB) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	return NewLedger(repo, zerolog.Nop()), repo, db
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	tx, err := db.Begin()
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestLedger_ApplyBuy_CreatesPosition(t *testing.T) {
	ledger, repo, db := newTestLedger(t)

	inTx(t, db, func(tx *sql.Tx) {
		pos, err := ledger.ApplyBuy(tx, "GLE FP", 10, decimal.NewFromInt(25))
		require.NoError(t, err)
		assert.Equal(t, int64(10), pos.Quantity)
		assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(25)))
	})

	stored, err := repo.Get("GLE FP")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(10), stored.Quantity)
	assert.True(t, stored.TotalCost().Equal(decimal.NewFromInt(250)))
}

func TestLedger_ApplyBuy_BlendsAverageCost(t *testing.T) {
	ledger, _, db := newTestLedger(t)

	// 10 @ 10 then 10 @ 20 -> 20 @ 15
	inTx(t, db, func(tx *sql.Tx) {
		_, err := ledger.ApplyBuy(tx, "KPN NA", 10, decimal.NewFromInt(10))
		require.NoError(t, err)
	})

	inTx(t, db, func(tx *sql.Tx) {
		pos, err := ledger.ApplyBuy(tx, "KPN NA", 10, decimal.NewFromInt(20))
		require.NoError(t, err)
		assert.Equal(t, int64(20), pos.Quantity)
		assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(15)), "got avg cost %s", pos.AvgCost)
	})
}

func TestLedger_ApplyBuy_UnevenBlendStaysExact(t *testing.T) {
	ledger, _, db := newTestLedger(t)

	// 3 @ 10.10 + 7 @ 20.20 = 171.70 over 10 shares -> 17.17 exactly
	inTx(t, db, func(tx *sql.Tx) {
		_, err := ledger.ApplyBuy(tx, "NK FP", 3, decimal.RequireFromString("10.10"))
		require.NoError(t, err)
	})

	inTx(t, db, func(tx *sql.Tx) {
		pos, err := ledger.ApplyBuy(tx, "NK FP", 7, decimal.RequireFromString("20.20"))
		require.NoError(t, err)
		assert.True(t, pos.AvgCost.Equal(decimal.RequireFromString("17.17")), "got avg cost %s", pos.AvgCost)
	})
}

func TestLedger_ApplyBuy_RejectsNonPositiveQuantity(t *testing.T) {
	ledger, _, db := newTestLedger(t)

	inTx(t, db, func(tx *sql.Tx) {
		_, err := ledger.ApplyBuy(tx, "GLE FP", 0, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

		_, err = ledger.ApplyBuy(tx, "GLE FP", -5, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})
}

func TestLedger_ApplySell_KeepsAverageCost(t *testing.T) {
	ledger, _, db := newTestLedger(t)

	inTx(t, db, func(tx *sql.Tx) {
		_, err := ledger.ApplyBuy(tx, "ROVI SM", 10, decimal.RequireFromString("17.17"))
		require.NoError(t, err)
	})

	// Selling must not move the average cost of the remaining shares
	inTx(t, db, func(tx *sql.Tx) {
		pos, err := ledger.ApplySell(tx, "ROVI SM", 4, decimal.NewFromInt(30))
		require.NoError(t, err)
		assert.Equal(t, int64(6), pos.Quantity)
		assert.True(t, pos.AvgCost.Equal(decimal.RequireFromString("17.17")), "got avg cost %s", pos.AvgCost)
	})
}

func TestLedger_ApplySell_FullExitRemovesPosition(t *testing.T) {
	ledger, repo, db := newTestLedger(t)

	inTx(t, db, func(tx *sql.Tx) {
		_, err := ledger.ApplyBuy(tx, "AALB NA", 5, decimal.NewFromInt(40))
		require.NoError(t, err)
	})

	inTx(t, db, func(tx *sql.Tx) {
		_, err := ledger.ApplySell(tx, "AALB NA", 5, decimal.NewFromInt(45))
		require.NoError(t, err)
	})

	stored, err := repo.Get("AALB NA")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLedger_ApplySell_InsufficientHoldings(t *testing.T) {
	ledger, repo, db := newTestLedger(t)

	inTx(t, db, func(tx *sql.Tx) {
		_, err := ledger.ApplyBuy(tx, "GLE FP", 5, decimal.NewFromInt(10))
		require.NoError(t, err)
	})

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = ledger.ApplySell(tx, "GLE FP", 6, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
	require.NoError(t, tx.Rollback())

	// Unheld ticker fails the same way
	tx, err = db.Begin()
	require.NoError(t, err)
	_, err = ledger.ApplySell(tx, "KPN NA", 1, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
	require.NoError(t, tx.Rollback())

	// Ledger untouched
	stored, err := repo.Get("GLE FP")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(5), stored.Quantity)
}

func TestRepository_GetAll_TickerAscending(t *testing.T) {
	ledger, repo, db := newTestLedger(t)

	for _, ticker := range []string{"ROVI SM", "AALB NA", "KPN NA"} {
		inTx(t, db, func(tx *sql.Tx) {
			_, err := ledger.ApplyBuy(tx, ticker, 1, decimal.NewFromInt(10))
			require.NoError(t, err)
		})
	}

	positions, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, positions, 3)
	assert.Equal(t, "AALB NA", positions[0].Ticker)
	assert.Equal(t, "KPN NA", positions[1].Ticker)
	assert.Equal(t, "ROVI SM", positions[2].Ticker)
}

func TestRepository_NormalizesTicker(t *testing.T) {
	ledger, repo, db := newTestLedger(t)

	inTx(t, db, func(tx *sql.Tx) {
		_, err := ledger.ApplyBuy(tx, "  gle fp ", 2, decimal.NewFromInt(10))
		require.NoError(t, err)
	})

	stored, err := repo.Get("GLE FP")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "GLE FP", stored.Ticker)
}
