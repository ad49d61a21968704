package account

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
)

// PositionSource supplies the current positions for valuation.
// Defined here to avoid an import cycle with the portfolio module.
type PositionSource interface {
	GetAll() ([]domain.Position, error)
}

// QuoteProvider supplies the latest quote for a ticker
type QuoteProvider interface {
	Latest(ticker string) (domain.Quote, error)
}

// Service derives the account summary from cash and current holdings
type Service struct {
	repo      *Repository
	positions PositionSource
	quotes    QuoteProvider
	log       zerolog.Logger
}

// NewService creates a new account service
func NewService(repo *Repository, positions PositionSource, quotes QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		positions: positions,
		quotes:    quotes,
		log:       log.With().Str("service", "account").Logger(),
	}
}

// Summary computes the full account summary. A missing quote degrades that
// one position to its stored average cost rather than failing the summary;
// store faults are surfaced, not swallowed.
func (s *Service) Summary() (domain.AccountSummary, error) {
	balances, err := s.repo.Get()
	if err != nil {
		return domain.AccountSummary{}, domain.StoreError(err)
	}

	positions, err := s.positions.GetAll()
	if err != nil {
		return domain.AccountSummary{}, domain.StoreError(err)
	}

	stockValue := decimal.Zero
	for _, pos := range positions {
		price := pos.AvgCost
		if quote, err := s.quotes.Latest(pos.Ticker); err == nil {
			price = quote.CurrentPrice
		} else {
			s.log.Warn().
				Err(err).
				Str("ticker", pos.Ticker).
				Msg("Quote lookup failed, valuing position at average cost")
		}
		stockValue = stockValue.Add(price.Mul(decimal.NewFromInt(pos.Quantity)))
	}

	totalAssets := balances.Cash.Add(stockValue)
	totalProfit := totalAssets.Sub(balances.InitialBalance)

	// Profit percentage is 0 for an account that never received a deposit
	profitPct := decimal.Zero
	if balances.InitialBalance.IsPositive() {
		profitPct = totalProfit.Div(balances.InitialBalance).Mul(decimal.NewFromInt(100))
	}

	return domain.AccountSummary{
		InitialBalance: balances.InitialBalance,
		CashBalance:    balances.Cash,
		TotalAssets:    totalAssets,
		TotalProfit:    totalProfit,
		ProfitPct:      profitPct,
	}, nil
}

// Balances returns the raw account balances
func (s *Service) Balances() (Balances, error) {
	balances, err := s.repo.Get()
	if err != nil {
		return Balances{}, domain.StoreError(err)
	}
	return balances, nil
}

// CashFlows returns the most recent cash movements, newest first
func (s *Service) CashFlows(limit int) ([]domain.CashFlow, error) {
	flows, err := s.repo.CashFlows(limit)
	if err != nil {
		return nil, domain.StoreError(err)
	}
	return flows, nil
}
