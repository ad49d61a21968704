package portfolio

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
)

// QuoteProvider supplies the latest quote for a ticker.
// Defined here to avoid an import cycle with the market module.
type QuoteProvider interface {
	Latest(ticker string) (domain.Quote, error)
}

// NameProvider resolves a ticker's display name
type NameProvider func(ticker string) string

// Service provides the read side of the position ledger: holdings enriched
// with current market values.
type Service struct {
	repo   *Repository
	quotes QuoteProvider
	names  NameProvider
	log    zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(repo *Repository, quotes QuoteProvider, names NameProvider, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quotes,
		names:  names,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// Holdings returns all positions with market values, ticker-ascending.
// When a quote is missing for a position its stored average cost is
// substituted and the holding is flagged stale, so one bad ticker cannot
// take down the whole listing.
func (s *Service) Holdings() ([]domain.Holding, error) {
	positions, err := s.repo.GetAll()
	if err != nil {
		return nil, domain.StoreError(err)
	}

	holdings := make([]domain.Holding, 0, len(positions))
	for _, pos := range positions {
		holdings = append(holdings, s.toHolding(pos))
	}

	return holdings, nil
}

// Holding returns one holding by ticker, or nil when the ticker is not held
func (s *Service) Holding(ticker string) (*domain.Holding, error) {
	pos, err := s.repo.Get(ticker)
	if err != nil {
		return nil, domain.StoreError(err)
	}
	if pos == nil {
		return nil, nil
	}

	holding := s.toHolding(*pos)
	return &holding, nil
}

func (s *Service) toHolding(pos domain.Position) domain.Holding {
	currentPrice := pos.AvgCost
	stale := true

	if quote, err := s.quotes.Latest(pos.Ticker); err == nil {
		currentPrice = quote.CurrentPrice
		stale = false
	} else {
		s.log.Warn().
			Err(err).
			Str("ticker", pos.Ticker).
			Msg("Quote lookup failed, valuing holding at average cost")
	}

	quantity := decimal.NewFromInt(pos.Quantity)
	totalCost := pos.TotalCost()
	currentValue := currentPrice.Mul(quantity)
	profit := currentValue.Sub(totalCost)

	profitPct := decimal.Zero
	if totalCost.IsPositive() {
		profitPct = profit.Div(totalCost).Mul(decimal.NewFromInt(100))
	}

	return domain.Holding{
		Ticker:       pos.Ticker,
		Name:         s.names(pos.Ticker),
		Quantity:     pos.Quantity,
		AvgCost:      pos.AvgCost,
		TotalCost:    totalCost,
		CurrentPrice: currentPrice,
		CurrentValue: currentValue,
		Profit:       profit,
		ProfitPct:    profitPct,
		PriceStale:   stale,
	}
}
