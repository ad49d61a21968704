package scheduler

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
)

// PositionSource lists the currently held positions
type PositionSource interface {
	GetAll() ([]domain.Position, error)
}

// PriceCache stores a refreshed market price on a position
type PriceCache interface {
	UpdateCachedPrice(ticker string, price decimal.Decimal) error
}

// QuoteSource supplies the latest quote for a ticker
type QuoteSource interface {
	Latest(ticker string) (domain.Quote, error)
}

// RefreshQuotesJob copies the latest market price onto every held position,
// so valuations stay warm even when no trade has touched a position recently.
type RefreshQuotesJob struct {
	positions PositionSource
	cache     PriceCache
	quotes    QuoteSource
	log       zerolog.Logger
}

// NewRefreshQuotesJob creates a new quote refresh job
func NewRefreshQuotesJob(positions PositionSource, cache PriceCache, quotes QuoteSource, log zerolog.Logger) *RefreshQuotesJob {
	return &RefreshQuotesJob{
		positions: positions,
		cache:     cache,
		quotes:    quotes,
		log:       log.With().Str("job", "refresh_quotes").Logger(),
	}
}

// Name returns the job name
func (j *RefreshQuotesJob) Name() string {
	return "refresh_quotes"
}

// Run refreshes the cached price of every held position. A position with no
// market data is skipped, not failed; store faults abort the run.
func (j *RefreshQuotesJob) Run() error {
	positions, err := j.positions.GetAll()
	if err != nil {
		return fmt.Errorf("failed to list positions: %w", err)
	}

	refreshed := 0
	for _, pos := range positions {
		quote, err := j.quotes.Latest(pos.Ticker)
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return fmt.Errorf("failed to load quote for %s: %w", pos.Ticker, err)
		}
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("ticker", pos.Ticker).
				Msg("No quote for held position, skipping")
			continue
		}

		if err := j.cache.UpdateCachedPrice(pos.Ticker, quote.CurrentPrice); err != nil {
			return fmt.Errorf("failed to cache price for %s: %w", pos.Ticker, err)
		}
		refreshed++
	}

	j.log.Debug().
		Int("positions", len(positions)).
		Int("refreshed", refreshed).
		Msg("Quote refresh finished")

	return nil
}
