package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if !cfg.StartingBalance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected starting balance 1500, got %s", cfg.StartingBalance)
	}
	if !cfg.TradeFee.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected fee 1, got %s", cfg.TradeFee)
	}
	if !cfg.MinTrade.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("expected min trade 0.01, got %s", cfg.MinTrade)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STARTING_BALANCE_USDC", "10000")
	t.Setenv("FEE_USDC", "0.3")
	t.Setenv("QUOTE_CACHE_TTL", "45s")

	cfg := Load()

	if !cfg.StartingBalance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected starting balance 10000, got %s", cfg.StartingBalance)
	}
	if !cfg.TradeFee.Equal(decimal.NewFromFloat(0.3)) {
		t.Errorf("expected fee 0.3, got %s", cfg.TradeFee)
	}
	if cfg.QuoteCacheTTL != 45*time.Second {
		t.Errorf("expected quote TTL 45s, got %s", cfg.QuoteCacheTTL)
	}
}

func TestLoad_InvalidDecimalFallsBack(t *testing.T) {
	t.Setenv("FEE_USDC", "notanumber")

	cfg := Load()
	if !cfg.TradeFee.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected default fee 1, got %s", cfg.TradeFee)
	}
}

func TestLoad_BareSecondsDuration(t *testing.T) {
	t.Setenv("CACHE_TTL", "60")

	cfg := Load()
	if cfg.CacheTTL != 60*time.Second {
		t.Errorf("expected 60s, got %s", cfg.CacheTTL)
	}
}
