package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaiwwang/MoneyPot/internal/domain"
)

// stockNames maps tickers to display names. Tickers without an entry fall
// back to the ticker itself.
var stockNames = map[string]string{
	"GLE FP":  "Societe Generale",
	"KPN NA":  "Koninklijke KPN",
	"NK FP":   "Natixis",
	"ROVI SM": "Laboratorios Rovi",
	"AALB NA": "ASML Holding",
}

// Service derives quotes from stored market data
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new market data service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "market").Logger(),
	}
}

// Latest returns the newest quote for a ticker. The change figures compare
// the latest close to the previous close; a ticker with a single candle has
// zero change.
func (s *Service) Latest(ticker string) (domain.Quote, error) {
	candles, err := s.repo.LatestTwo(ticker)
	if err != nil {
		return domain.Quote{}, domain.StoreError(err)
	}
	if len(candles) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrUnknownTicker, ticker)
	}

	latest := candles[0]
	quote := domain.Quote{
		Ticker:       latest.Ticker,
		Name:         StockName(latest.Ticker),
		CurrentPrice: latest.Close,
		Open:         latest.Open,
		High:         latest.High,
		Low:          latest.Low,
		Volume:       latest.Volume,
	}

	if len(candles) > 1 && candles[1].Close.IsPositive() {
		previous := candles[1].Close
		quote.PreviousClose = previous
		quote.Change = latest.Close.Sub(previous)
		quote.ChangePct = quote.Change.Div(previous).Mul(decimal.NewFromInt(100))
	}

	return quote, nil
}

// All returns the latest quote for every known ticker, ticker-ascending
func (s *Service) All() ([]domain.Quote, error) {
	tickers, err := s.repo.AllTickers()
	if err != nil {
		return nil, domain.StoreError(err)
	}

	quotes := make([]domain.Quote, 0, len(tickers))
	for _, ticker := range tickers {
		quote, err := s.Latest(ticker)
		if err != nil {
			// A ticker returned by AllTickers has at least one candle, so a
			// miss here is a store fault, not a data gap
			return nil, err
		}
		quotes = append(quotes, quote)
	}

	return quotes, nil
}

// History returns up to days candles for a ticker, newest first
func (s *Service) History(ticker string, days int) ([]Candle, error) {
	candles, err := s.repo.History(ticker, days)
	if err != nil {
		return nil, domain.StoreError(err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTicker, ticker)
	}
	return candles, nil
}

// IsKnown reports whether market data exists for the ticker
func (s *Service) IsKnown(ticker string) (bool, error) {
	known, err := s.repo.HasTicker(ticker)
	if err != nil {
		return false, domain.StoreError(err)
	}
	return known, nil
}

// ImportCSV loads candles from a CSV stream with the header
// ticker,date,open,high,low,close,volume. Returns the number of rows imported.
func (s *Service) ImportCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < 7 {
		return 0, fmt.Errorf("unexpected CSV header, want ticker,date,open,high,low,close,volume")
	}

	imported := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("failed to read CSV record: %w", err)
		}

		candle, err := parseCandleRecord(record)
		if err != nil {
			return imported, fmt.Errorf("invalid record %d: %w", imported+1, err)
		}

		if err := s.repo.InsertCandle(candle); err != nil {
			return imported, domain.StoreError(err)
		}
		imported++
	}

	s.log.Info().Int("rows", imported).Msg("Imported market candles")
	return imported, nil
}

func parseCandleRecord(record []string) (Candle, error) {
	if len(record) < 7 {
		return Candle{}, fmt.Errorf("want 7 fields, got %d", len(record))
	}

	var c Candle
	c.Ticker = record[0]
	c.Date = record[1]

	var err error
	if c.Open, err = decimal.NewFromString(record[2]); err != nil {
		return c, fmt.Errorf("bad open %q: %w", record[2], err)
	}
	if c.High, err = decimal.NewFromString(record[3]); err != nil {
		return c, fmt.Errorf("bad high %q: %w", record[3], err)
	}
	if c.Low, err = decimal.NewFromString(record[4]); err != nil {
		return c, fmt.Errorf("bad low %q: %w", record[4], err)
	}
	if c.Close, err = decimal.NewFromString(record[5]); err != nil {
		return c, fmt.Errorf("bad close %q: %w", record[5], err)
	}
	if c.Volume, err = strconv.ParseInt(record[6], 10, 64); err != nil {
		return c, fmt.Errorf("bad volume %q: %w", record[6], err)
	}

	return c, nil
}

// StockName returns the display name for a ticker
func StockName(ticker string) string {
	if name, ok := stockNames[ticker]; ok {
		return name
	}
	return ticker
}
