package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/basesim/trade-engine/internal/metrics"
	"github.com/basesim/trade-engine/internal/model"
	"github.com/basesim/trade-engine/internal/notify"
	"github.com/basesim/trade-engine/internal/store"
)

const (
	walletA = "0x00112233445566778899AaBbCcDdEeFf00112233"
	walletB = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

	normalizedA = "0x00112233445566778899aabbccddeeff00112233"
)

// recorder captures onboarding notifications for assertions.
type recorder struct {
	onboarded []string
}

func (r *recorder) NewIdentityOnboarded(walletAddress string) {
	r.onboarded = append(r.onboarded, walletAddress)
}

func newTestManager() (*Manager, *store.MemoryStore, *recorder) {
	ms := store.NewMemoryStore()
	rec := &recorder{}
	return NewManager(ms, rec, decimal.NewFromInt(1500)), ms, rec
}

func TestGetOrCreate_FreshProfile(t *testing.T) {
	m, _, rec := newTestManager()

	ledger, status, err := m.GetOrCreate(context.Background(), walletA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusCreated {
		t.Errorf("expected %q, got %q", StatusCreated, status)
	}
	if !ledger.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected balance 1500, got %s", ledger.Balance)
	}
	if ledger.WalletAddress != normalizedA {
		t.Errorf("expected normalized address %s, got %s", normalizedA, ledger.WalletAddress)
	}
	if len(ledger.Holdings) != 0 || len(ledger.TradeHistory) != 0 || len(ledger.Watchlist) != 0 {
		t.Error("fresh ledger must start empty")
	}
	if len(ledger.ValueHistory) != 1 || !ledger.ValueHistory[0].TotalValue.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("fresh ledger should carry one seed value point, got %v", ledger.ValueHistory)
	}
	if len(rec.onboarded) != 1 || rec.onboarded[0] != normalizedA {
		t.Errorf("expected one onboarding notification for %s, got %v", normalizedA, rec.onboarded)
	}
}

func TestGetOrCreate_LoadsExisting(t *testing.T) {
	m, _, rec := newTestManager()
	ctx := context.Background()

	first, _, err := m.GetOrCreate(ctx, walletA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Address case must not matter: same wallet, same ledger.
	second, status, err := m.GetOrCreate(ctx, normalizedA)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if status != StatusLoaded {
		t.Errorf("expected %q, got %q", StatusLoaded, status)
	}
	if second.WalletAddress != first.WalletAddress || !second.Balance.Equal(first.Balance) {
		t.Error("reconnect should return the stored ledger")
	}
	if len(rec.onboarded) != 1 {
		t.Errorf("reconnect must not re-notify, got %d notifications", len(rec.onboarded))
	}
}

func TestGetOrCreate_InvalidAddress(t *testing.T) {
	m, _, _ := newTestManager()

	for _, addr := range []string{"", "0x123", "not-an-address"} {
		if _, _, err := m.GetOrCreate(context.Background(), addr); err == nil {
			t.Errorf("expected error for address %q", addr)
		}
	}
}

func TestGetOrCreate_RecoversFromInvalidState(t *testing.T) {
	m, ms, _ := newTestManager()
	ctx := context.Background()

	// A stored ledger with a negative balance fails validation.
	ms.Save(ctx, normalizedA, &model.Ledger{
		WalletAddress: normalizedA,
		Balance:       decimal.NewFromInt(-50),
	})

	ledger, status, err := m.GetOrCreate(ctx, walletA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusRecovered {
		t.Errorf("expected %q, got %q", StatusRecovered, status)
	}
	if !ledger.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("recovered ledger should be fresh, got balance %s", ledger.Balance)
	}
}

func TestGetOrCreate_RecoversFromAddressMismatch(t *testing.T) {
	m, ms, _ := newTestManager()
	ctx := context.Background()

	ms.Save(ctx, normalizedA, &model.Ledger{
		WalletAddress: "0x71c7656ec7ab88b098defb751b7401b5f6d8976f",
		Balance:       decimal.NewFromInt(900),
	})

	_, status, err := m.GetOrCreate(ctx, walletA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusRecovered {
		t.Errorf("expected %q, got %q", StatusRecovered, status)
	}
}

func TestGetOrCreate_RecoversFromUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	m := NewManager(fs, notify.Noop{}, decimal.NewFromInt(1500))

	// Garbage on disk where the profile should be.
	path := filepath.Join(dir, "profile_"+normalizedA+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	ledger, status, err := m.GetOrCreate(context.Background(), walletA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusRecovered {
		t.Errorf("expected %q, got %q", StatusRecovered, status)
	}
	if !ledger.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected fresh balance 1500, got %s", ledger.Balance)
	}

	// The fresh ledger must have replaced the garbage on disk.
	if _, err := fs.Load(context.Background(), normalizedA); err != nil {
		t.Errorf("recovered ledger should be persisted: %v", err)
	}
}

func TestSwitchIdentity_NoStateLeak(t *testing.T) {
	m, ms, _ := newTestManager()
	ctx := context.Background()

	a, _, err := m.GetOrCreate(ctx, walletA)
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	a.Balance = decimal.NewFromInt(777)
	a.Watchlist = append(a.Watchlist, "0x4200000000000000000000000000000000000006")
	ms.Save(ctx, a.WalletAddress, a)

	b, status, err := m.SwitchIdentity(ctx, walletB)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if status != StatusCreated {
		t.Errorf("expected %q for new identity, got %q", StatusCreated, status)
	}
	if !b.Balance.Equal(decimal.NewFromInt(1500)) || len(b.Watchlist) != 0 {
		t.Error("new identity must not inherit another wallet's state")
	}

	// Switching back restores A untouched.
	back, status, err := m.SwitchIdentity(ctx, walletA)
	if err != nil {
		t.Fatalf("switch back: %v", err)
	}
	if status != StatusLoaded {
		t.Errorf("expected %q, got %q", StatusLoaded, status)
	}
	if !back.Balance.Equal(decimal.NewFromInt(777)) {
		t.Errorf("expected preserved balance 777, got %s", back.Balance)
	}
}

func TestReset(t *testing.T) {
	m, ms, _ := newTestManager()
	ctx := context.Background()

	a, _, err := m.GetOrCreate(ctx, walletA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a.Balance = decimal.NewFromInt(3)
	ms.Save(ctx, a.WalletAddress, a)

	recoveredBefore := testutil.ToFloat64(metrics.ProfilesRecovered)
	resetBefore := testutil.ToFloat64(metrics.ProfilesReset)

	ledger, err := m.Reset(ctx, walletA)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !ledger.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected fresh balance 1500, got %s", ledger.Balance)
	}

	stored, err := ms.Load(ctx, normalizedA)
	if err != nil {
		t.Fatalf("load after reset: %v", err)
	}
	if !stored.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("reset must persist the fresh ledger, got %s", stored.Balance)
	}

	// A user-requested reset is not a corruption recovery.
	if got := testutil.ToFloat64(metrics.ProfilesRecovered); got != recoveredBefore {
		t.Errorf("reset must not count as a recovery: recovered went %v -> %v", recoveredBefore, got)
	}
	if got := testutil.ToFloat64(metrics.ProfilesReset); got != resetBefore+1 {
		t.Errorf("expected reset counter %v, got %v", resetBefore+1, got)
	}
}

func TestValidate(t *testing.T) {
	good := &model.Ledger{
		WalletAddress: normalizedA,
		Balance:       decimal.NewFromInt(100),
		Holdings: []model.Position{{
			ContractID: "0x4200000000000000000000000000000000000006",
			Amount:     decimal.NewFromInt(5),
			BuyPrice:   decimal.NewFromFloat(0.01),
		}},
	}
	if err := validate(good, normalizedA); err != nil {
		t.Errorf("valid ledger rejected: %v", err)
	}

	bad := []*model.Ledger{
		{Balance: decimal.NewFromInt(100)}, // missing address
		{WalletAddress: "junk", Balance: decimal.NewFromInt(100)},
		{WalletAddress: normalizedA, Balance: decimal.NewFromInt(-1)},
		{WalletAddress: normalizedA, Balance: decimal.NewFromInt(100),
			Holdings: []model.Position{{Amount: decimal.NewFromInt(-5), BuyPrice: decimal.NewFromInt(1)}}},
		{WalletAddress: normalizedA, Balance: decimal.NewFromInt(100),
			Holdings: []model.Position{{Amount: decimal.NewFromInt(5)}}}, // zero cost basis
	}
	for i, l := range bad {
		if err := validate(l, normalizedA); err == nil {
			t.Errorf("case %d: invalid ledger accepted", i)
		}
	}
}
