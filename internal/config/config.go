package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

// StoreDriver selects the ledger persistence backend
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreSQLite   StoreDriver = "sqlite"
	StoreMemory   StoreDriver = "memory"
)

// Config holds all application configuration.
type Config struct {
	// HTTP
	ServerPort string
	APIToken   string

	// Persistence
	StoreDriver StoreDriver
	PostgresDSN string
	SQLitePath  string

	// Accounting
	BaseCurrency   domain.Currency
	DefaultTaxRate decimal.Decimal

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables (.env file).
func Load() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		APIToken:    getEnv("API_TOKEN", "dev-token"),
		StoreDriver: StoreDriver(strings.ToLower(getEnv("STORE_DRIVER", "memory"))),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/trackfolio.db"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
	}

	switch cfg.StoreDriver {
	case StorePostgres, StoreSQLite, StoreMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	cfg.PostgresDSN = getEnv("DB_CONN_STR", "")
	if cfg.PostgresDSN == "" {
		// Build from individual vars (Docker friendly)
		cfg.PostgresDSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "trackfolio"),
		)
	}

	baseCurrency := domain.Currency(strings.ToUpper(getEnv("BASE_CURRENCY", "EUR")))
	if !baseCurrency.IsValid() {
		return nil, fmt.Errorf("unsupported BASE_CURRENCY %q", baseCurrency)
	}
	cfg.BaseCurrency = baseCurrency

	rateStr := getEnv("DEFAULT_TAX_RATE", "")
	if rateStr == "" {
		cfg.DefaultTaxRate = domain.DefaultTaxRate
	} else {
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_TAX_RATE %q: %w", rateStr, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("DEFAULT_TAX_RATE must be between 0 and 100, got %s", rate)
		}
		cfg.DefaultTaxRate = rate
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
