// Package profile manages ledger lifecycle: creating a fresh ledger on
// first contact with a wallet, loading and validating an existing one, and
// recovering from corrupt stored state by resetting to fresh.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/basesim/trade-engine/internal/identity"
	"github.com/basesim/trade-engine/internal/metrics"
	"github.com/basesim/trade-engine/internal/model"
	"github.com/basesim/trade-engine/internal/notify"
	"github.com/basesim/trade-engine/internal/store"
)

// Status reports how GetOrCreate obtained the ledger. A recovered profile
// is an informational notice for the caller, not a failure.
type Status string

const (
	StatusLoaded    Status = "loaded"
	StatusCreated   Status = "created"
	StatusRecovered Status = "recovered"
)

// Manager owns ledger lifecycle for all wallets.
type Manager struct {
	store           store.Store
	notifier        notify.Notifier
	startingBalance decimal.Decimal
}

// NewManager creates a profile manager. Pass notify.Noop{} when no
// notification sink is configured.
func NewManager(st store.Store, notifier notify.Notifier, startingBalance decimal.Decimal) *Manager {
	return &Manager{
		store:           st,
		notifier:        notifier,
		startingBalance: startingBalance,
	}
}

// GetOrCreate returns the ledger for walletAddress, creating a fresh one
// seeded with the starting balance on first contact. A stored ledger that
// fails validation is discarded and recreated rather than partially
// repaired.
func (m *Manager) GetOrCreate(ctx context.Context, walletAddress string) (*model.Ledger, Status, error) {
	addr, err := identity.Normalize(walletAddress)
	if err != nil {
		return nil, "", err
	}

	ledger, err := m.store.Load(ctx, addr)
	switch {
	case err == nil:
		if vErr := validate(ledger, addr); vErr != nil {
			slog.Warn("corrupt profile, resetting", "wallet", identity.Short(addr), "err", vErr)
			return m.recreate(ctx, addr, StatusRecovered)
		}
		return ledger, StatusLoaded, nil

	case errors.Is(err, store.ErrNotFound):
		ledger, _, cErr := m.recreate(ctx, addr, StatusCreated)
		if cErr != nil {
			return nil, "", cErr
		}
		// Fire-and-forget; onboarding must never block or fail on this.
		m.notifier.NewIdentityOnboarded(addr)
		metrics.ProfilesOnboarded.Inc()
		slog.Info("profile created", "wallet", identity.Short(addr), "balance", m.startingBalance.String())
		return ledger, StatusCreated, nil

	case errors.Is(err, store.ErrCorrupt):
		slog.Warn("undecodable profile, resetting", "wallet", identity.Short(addr), "err", err)
		return m.recreate(ctx, addr, StatusRecovered)

	default:
		return nil, "", fmt.Errorf("load profile: %w", err)
	}
}

// SwitchIdentity is disconnect-then-GetOrCreate for the new wallet. Each
// ledger is exclusively owned by its identity; nothing is merged or leaked
// between them.
func (m *Manager) SwitchIdentity(ctx context.Context, newWalletAddress string) (*model.Ledger, Status, error) {
	return m.GetOrCreate(ctx, newWalletAddress)
}

// Reset discards the wallet's ledger and recreates it fresh. This is the
// only sanctioned way to delete trading state. A user-requested reset is
// not a recovery: it has its own metric and never counts as a corrupt
// profile.
func (m *Manager) Reset(ctx context.Context, walletAddress string) (*model.Ledger, error) {
	addr, err := identity.Normalize(walletAddress)
	if err != nil {
		return nil, err
	}

	if err := m.store.Delete(ctx, addr); err != nil {
		return nil, fmt.Errorf("discard profile: %w", err)
	}

	ledger := m.fresh(addr)
	if err := m.store.Save(ctx, addr, ledger); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	metrics.ProfilesReset.Inc()
	slog.Info("profile reset", "wallet", identity.Short(addr))
	return ledger, nil
}

func (m *Manager) recreate(ctx context.Context, addr string, status Status) (*model.Ledger, Status, error) {
	if status == StatusRecovered {
		if err := m.store.Delete(ctx, addr); err != nil {
			return nil, "", fmt.Errorf("discard profile: %w", err)
		}
		metrics.ProfilesRecovered.Inc()
	}

	ledger := m.fresh(addr)
	if err := m.store.Save(ctx, addr, ledger); err != nil {
		return nil, "", fmt.Errorf("create profile: %w", err)
	}
	return ledger, status, nil
}

// fresh builds a new ledger seeded with the starting balance and a single
// value-history point at creation time.
func (m *Manager) fresh(addr string) *model.Ledger {
	return &model.Ledger{
		WalletAddress: addr,
		Balance:       m.startingBalance,
		Holdings:      []model.Position{},
		TradeHistory:  []model.TradeRecord{},
		ValueHistory: []model.ValuePoint{{
			Timestamp:  time.Now().UTC(),
			TotalValue: m.startingBalance,
		}},
		Watchlist: []string{},
	}
}

// validate applies the minimal schema checks before trusting a stored
// ledger: the identity must match and the balance must be a non-negative
// number. Anything else is a corrupt profile.
func validate(l *model.Ledger, addr string) error {
	if l.WalletAddress == "" {
		return errors.New("missing wallet address")
	}
	normalized, err := identity.Normalize(l.WalletAddress)
	if err != nil || normalized != addr {
		return fmt.Errorf("wallet address mismatch: %s", l.WalletAddress)
	}
	if l.Balance.IsNegative() {
		return fmt.Errorf("negative balance: %s", l.Balance)
	}
	for _, p := range l.Holdings {
		if p.Amount.IsNegative() || !p.BuyPrice.IsPositive() {
			return fmt.Errorf("invalid position %s: amount=%s buyPrice=%s", p.ContractID, p.Amount, p.BuyPrice)
		}
	}
	return nil
}
