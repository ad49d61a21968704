// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DataDir              string          // Base directory for the database (always absolute)
	Port                 int
	LogLevel             string
	DevMode              bool
	InitialBalance       decimal.Decimal // Cash seeded into a brand-new account
	QuoteRefreshSchedule string          // Cron spec for the held-position quote refresh job
	SeedFile             string          // Optional CSV of market candles loaded at startup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("MONEYPOT_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	initialBalance, err := decimal.NewFromString(getEnv("INITIAL_BALANCE", "100000"))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_BALANCE: %w", err)
	}
	if initialBalance.IsNegative() {
		return nil, fmt.Errorf("INITIAL_BALANCE must not be negative")
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 8000),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		InitialBalance:       initialBalance,
		QuoteRefreshSchedule: getEnv("QUOTE_REFRESH_SCHEDULE", "@every 5m"),
		SeedFile:             getEnv("MARKET_SEED_FILE", ""),
	}

	return cfg, nil
}

// DatabasePath returns the path of the application database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "moneypot.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
