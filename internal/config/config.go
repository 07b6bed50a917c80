// Package config loads the engine configuration from the environment,
// optionally seeded from a .env file.
//
// Fee, minimum trade size, and starting balance are configuration rather
// than constants: the unit is the simulated USDC balance everywhere, and
// deployments can tune the trading costs without a rebuild.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all runtime settings for the trade engine.
type Config struct {
	Port string

	// Trading parameters, denominated in simulated USDC.
	StartingBalance decimal.Decimal // seeded on first connect
	TradeFee        decimal.Decimal // flat fee per trade
	MinTrade        decimal.Decimal // minimum buy quote amount

	// Persistence. DatabaseURL empty → file store; DataDir empty too →
	// in-memory store.
	DatabaseURL string
	RedisURL    string
	DataDir     string
	CacheTTL    time.Duration

	// Market data.
	DexScreenerURL string
	QuoteCacheTTL  time.Duration

	// Notifications (optional).
	TelegramBotToken string
	TelegramChatID   string
}

// Load reads configuration from the environment. A missing .env file is not
// an error; system environment variables always win.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment")
	}

	return Config{
		Port:             getEnv("PORT", "8080"),
		StartingBalance:  getEnvAsDecimal("STARTING_BALANCE_USDC", decimal.NewFromInt(1500)),
		TradeFee:         getEnvAsDecimal("FEE_USDC", decimal.NewFromInt(1)),
		MinTrade:         getEnvAsDecimal("MIN_TRADE_USDC", decimal.NewFromFloat(0.01)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DataDir:          os.Getenv("DATA_DIR"),
		CacheTTL:         getEnvAsDuration("CACHE_TTL", 30*time.Second),
		DexScreenerURL:   os.Getenv("DEXSCREENER_URL"),
		QuoteCacheTTL:    getEnvAsDuration("QUOTE_CACHE_TTL", 15*time.Second),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		slog.Warn("invalid decimal in config, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are treated as seconds.
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("invalid duration in config, using default", "key", key, "value", v, "default", fallback)
	return fallback
}
