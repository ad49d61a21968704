package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaiwwang/MoneyPot/internal/config"
	"github.com/kaiwwang/MoneyPot/internal/database"
	"github.com/kaiwwang/MoneyPot/internal/modules/account"
	accounthandlers "github.com/kaiwwang/MoneyPot/internal/modules/account/handlers"
	"github.com/kaiwwang/MoneyPot/internal/modules/market"
	markethandlers "github.com/kaiwwang/MoneyPot/internal/modules/market/handlers"
	"github.com/kaiwwang/MoneyPot/internal/modules/portfolio"
	portfoliohandlers "github.com/kaiwwang/MoneyPot/internal/modules/portfolio/handlers"
	"github.com/kaiwwang/MoneyPot/internal/modules/trading"
	tradinghandlers "github.com/kaiwwang/MoneyPot/internal/modules/trading/handlers"
	"github.com/kaiwwang/MoneyPot/internal/scheduler"
	"github.com/kaiwwang/MoneyPot/internal/server"
	"github.com/kaiwwang/MoneyPot/pkg/logger"
)

func main() {
	// Load configuration first so the log level is honored from the start
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting MoneyPot")

	// Initialize database. The ledger profile trades write speed for
	// durability; cash and positions live here.
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "moneypot",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	marketRepo := market.NewRepository(db.Conn(), log)
	positionRepo := portfolio.NewRepository(db.Conn(), log)
	accountRepo := account.NewRepository(db.Conn(), log)
	tradeRepo := trading.NewRepository(db.Conn(), log)

	// A brand-new account starts with the configured cash balance
	if err := accountRepo.EnsureSeeded(cfg.InitialBalance); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed account")
	}

	// Services
	marketService := market.NewService(marketRepo, log)
	portfolioService := portfolio.NewService(positionRepo, marketService, market.StockName, log)
	accountService := account.NewService(accountRepo, positionRepo, marketService, log)
	ledger := portfolio.NewLedger(positionRepo, log)
	executor := trading.NewExecutor(db.Conn(), ledger, tradeRepo, accountRepo, marketService, log)

	// Optional market data seed
	if cfg.SeedFile != "" {
		seedMarketData(cfg.SeedFile, marketService, log)
	}

	// Background jobs
	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshQuotesJob(positionRepo, positionRepo, marketService, log)
	if err := sched.AddJob(cfg.QuoteRefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register quote refresh job")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:     log,
		DB:      db,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Modules: []server.RouteRegistrar{
			markethandlers.NewHandler(marketService, log),
			portfoliohandlers.NewHandler(portfolioService, log),
			accounthandlers.NewHandler(accountService, executor, log),
			tradinghandlers.NewHandler(executor, log),
		},
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// seedMarketData imports a CSV of daily candles. A missing or malformed seed
// file is logged and skipped; the server still starts.
func seedMarketData(path string, svc *market.Service, log zerolog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Market seed file not readable, skipping")
		return
	}
	defer f.Close()

	imported, err := svc.ImportCSV(f)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Market seed import failed")
		return
	}
	log.Info().Int("candles", imported).Str("path", path).Msg("Market data seeded")
}
