// Package engine implements the simulated-trading core: the trade executor
// that mutates a wallet's ledger, the watchlist operations, and the HTTP
// gateway exposing them.
//
// All monetary values use shopspring/decimal — never float64 for money.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/basesim/trade-engine/internal/identity"
	"github.com/basesim/trade-engine/internal/metrics"
	"github.com/basesim/trade-engine/internal/model"
	"github.com/basesim/trade-engine/internal/quote"
	"github.com/basesim/trade-engine/internal/store"
	"github.com/basesim/trade-engine/internal/valuation"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	// maxSlippage keeps net proceeds strictly positive after the
	// slippage haircut; slippage is clamped to [0, maxSlippage].
	maxSlippage = decimal.NewFromFloat(99.99)
)

// Executor orchestrates buys and sells against a wallet's ledger. A trade
// either fully commits (one Save of the post-trade snapshot) or fully fails
// with the ledger untouched.
type Executor struct {
	store  store.Store
	quotes quote.Provider
	locks  *walletLocks

	fee      decimal.Decimal
	minTrade decimal.Decimal

	wsHub *WSHub // optional hub for real-time broadcasts
}

// NewExecutor creates a trade executor. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewExecutor(st store.Store, quotes quote.Provider, fee, minTrade decimal.Decimal, hub *WSHub) *Executor {
	return &Executor{
		store:    st,
		quotes:   quotes,
		locks:    newWalletLocks(),
		fee:      fee,
		minTrade: minTrade,
		wsHub:    hub,
	}
}

// TradeResult is returned from a committed trade: the appended record plus
// the full post-trade ledger snapshot for the caller to display.
type TradeResult struct {
	Record model.TradeRecord `json:"record"`
	Ledger *model.Ledger     `json:"ledger"`
}

// Buy spends quoteAmount of the wallet's balance on contractID tokens at
// the current market price, applying slippage against the buyer and a flat
// fee on top of the quote amount.
func (e *Executor) Buy(ctx context.Context, walletAddress, contractID string, quoteAmount, slippagePct decimal.Decimal) (*TradeResult, error) {
	start := time.Now()

	addr, err := identity.Normalize(walletAddress)
	if err != nil {
		return nil, err
	}

	if !e.locks.tryAcquire(addr) {
		metrics.TradeRejections.WithLabelValues("trade_in_progress").Inc()
		return nil, fmt.Errorf("%w: %s", ErrTradeInProgress, identity.Short(addr))
	}
	defer e.locks.release(addr)

	ledger, err := e.store.Load(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	// --- Validation (no mutation past this block until commit) ---
	if quoteAmount.LessThan(e.minTrade) || !quoteAmount.IsPositive() {
		metrics.TradeRejections.WithLabelValues("below_minimum").Inc()
		return nil, fmt.Errorf("%w: minimum buy is %s USDC", ErrBelowMinimum, e.minTrade)
	}
	totalCost := quoteAmount.Add(e.fee)
	if totalCost.GreaterThan(ledger.Balance) {
		metrics.TradeRejections.WithLabelValues("insufficient_balance").Inc()
		return nil, fmt.Errorf("%w: need %s USDC, have %s", ErrInsufficientBalance, totalCost, ledger.Balance)
	}

	// --- Pricing ---
	q, err := e.quotes.GetQuote(ctx, contractID)
	if err != nil {
		metrics.QuoteFailures.Inc()
		metrics.TradeRejections.WithLabelValues("quote_unavailable").Inc()
		return nil, fmt.Errorf("price %s: %w", contractID, err)
	}
	price := q.PriceUSD
	if !price.IsPositive() {
		metrics.QuoteFailures.Inc()
		metrics.TradeRejections.WithLabelValues("quote_unavailable").Inc()
		return nil, fmt.Errorf("price %s: non-positive %s: %w", contractID, price, quote.ErrUnavailable)
	}

	slip := clampSlippage(slippagePct)
	grossTokens := quoteAmount.Div(price)
	netTokens := grossTokens.Mul(one.Sub(slip.Div(hundred)))

	// --- Mutation (on the loaded copy; committed by a single Save) ---
	if pos := ledger.FindPosition(contractID); pos != nil {
		pos.BuyPrice = valuation.WeightedAverageCost(pos.Amount, pos.BuyPrice, netTokens, price)
		pos.Amount = pos.Amount.Add(netTokens)
		pos.LastPrice = price
	} else {
		ledger.Holdings = append(ledger.Holdings, model.Position{
			ContractID: contractID,
			Symbol:     q.Symbol,
			Name:       q.Name,
			Amount:     netTokens,
			BuyPrice:   price,
			LastPrice:  price,
			LogoURL:    q.LogoURL,
		})
	}

	ledger.Balance = ledger.Balance.Sub(totalCost)

	now := time.Now().UTC()
	record := model.TradeRecord{
		ID:          uuid.New().String(),
		Kind:        model.KindBuy,
		ContractID:  contractID,
		Symbol:      q.Symbol,
		Amount:      netTokens,
		Price:       price,
		QuoteValue:  quoteAmount,
		SlippagePct: slip,
		FeeAmount:   e.fee,
		Timestamp:   now,
	}
	ledger.TradeHistory = append(ledger.TradeHistory, record)

	totalValue := valuation.PortfolioValue(ledger)
	ledger.ValueHistory = append(ledger.ValueHistory, model.ValuePoint{
		Timestamp:  now,
		TotalValue: totalValue,
	})

	if err := e.store.Save(ctx, addr, ledger); err != nil {
		return nil, fmt.Errorf("commit trade: %w", err)
	}

	metrics.TradesTotal.WithLabelValues("buy").Inc()
	metrics.TradeLatency.WithLabelValues("buy").Observe(time.Since(start).Seconds())

	slog.Info("trade committed",
		"trade_id", record.ID,
		"wallet", identity.Short(addr),
		"side", "buy",
		"token", q.Symbol,
		"tokens", netTokens.String(),
		"usdc", quoteAmount.String(),
		"price", price.String(),
		"balance", ledger.Balance.String(),
	)

	e.broadcast(addr, record, ledger.Balance, totalValue)

	return &TradeResult{Record: record, Ledger: ledger}, nil
}

// Sell disposes of tokenAmount tokens of contractID at the current market
// price. Slippage and the flat fee come out of the proceeds; realized P&L
// is locked in against the position's cost basis.
func (e *Executor) Sell(ctx context.Context, walletAddress, contractID string, tokenAmount, slippagePct decimal.Decimal) (*TradeResult, error) {
	start := time.Now()

	addr, err := identity.Normalize(walletAddress)
	if err != nil {
		return nil, err
	}

	if !e.locks.tryAcquire(addr) {
		metrics.TradeRejections.WithLabelValues("trade_in_progress").Inc()
		return nil, fmt.Errorf("%w: %s", ErrTradeInProgress, identity.Short(addr))
	}
	defer e.locks.release(addr)

	ledger, err := e.store.Load(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	// --- Validation ---
	pos := ledger.FindPosition(contractID)
	if pos == nil {
		metrics.TradeRejections.WithLabelValues("insufficient_holdings").Inc()
		return nil, fmt.Errorf("%w: no position in %s", ErrInsufficientHoldings, contractID)
	}
	if !tokenAmount.IsPositive() || tokenAmount.GreaterThan(pos.Amount) {
		metrics.TradeRejections.WithLabelValues("insufficient_holdings").Inc()
		return nil, fmt.Errorf("%w: asked %s, hold %s %s", ErrInsufficientHoldings, tokenAmount, pos.Amount, pos.Symbol)
	}

	// --- Pricing ---
	q, err := e.quotes.GetQuote(ctx, contractID)
	if err != nil {
		metrics.QuoteFailures.Inc()
		metrics.TradeRejections.WithLabelValues("quote_unavailable").Inc()
		return nil, fmt.Errorf("price %s: %w", contractID, err)
	}
	price := q.PriceUSD
	if !price.IsPositive() {
		metrics.QuoteFailures.Inc()
		metrics.TradeRejections.WithLabelValues("quote_unavailable").Inc()
		return nil, fmt.Errorf("price %s: non-positive %s: %w", contractID, price, quote.ErrUnavailable)
	}

	slip := clampSlippage(slippagePct)
	grossQuote := tokenAmount.Mul(price)
	netQuote := grossQuote.Mul(one.Sub(slip.Div(hundred))).Sub(e.fee)
	if netQuote.IsNegative() {
		metrics.TradeRejections.WithLabelValues("below_minimum").Inc()
		return nil, fmt.Errorf("%w: fee exceeds proceeds of %s USDC", ErrBelowMinimum, grossQuote)
	}

	realized := price.Sub(pos.BuyPrice).Mul(tokenAmount)
	symbol := pos.Symbol

	// --- Mutation ---
	if tokenAmount.Equal(pos.Amount) {
		// Full exit: no residual cost basis may leak into a re-buy.
		ledger.RemovePosition(contractID)
	} else {
		pos.Amount = pos.Amount.Sub(tokenAmount)
		pos.LastPrice = price
	}

	ledger.Balance = ledger.Balance.Add(netQuote)

	now := time.Now().UTC()
	record := model.TradeRecord{
		ID:          uuid.New().String(),
		Kind:        model.KindSell,
		ContractID:  contractID,
		Symbol:      symbol,
		Amount:      tokenAmount,
		Price:       price,
		QuoteValue:  netQuote,
		SlippagePct: slip,
		FeeAmount:   e.fee,
		RealizedPnL: &realized,
		Timestamp:   now,
	}
	ledger.TradeHistory = append(ledger.TradeHistory, record)

	totalValue := valuation.PortfolioValue(ledger)
	ledger.ValueHistory = append(ledger.ValueHistory, model.ValuePoint{
		Timestamp:  now,
		TotalValue: totalValue,
	})

	if err := e.store.Save(ctx, addr, ledger); err != nil {
		return nil, fmt.Errorf("commit trade: %w", err)
	}

	metrics.TradesTotal.WithLabelValues("sell").Inc()
	metrics.TradeLatency.WithLabelValues("sell").Observe(time.Since(start).Seconds())

	slog.Info("trade committed",
		"trade_id", record.ID,
		"wallet", identity.Short(addr),
		"side", "sell",
		"token", symbol,
		"tokens", tokenAmount.String(),
		"usdc", netQuote.String(),
		"price", price.String(),
		"realized_pnl", realized.String(),
		"balance", ledger.Balance.String(),
	)

	e.broadcast(addr, record, ledger.Balance, totalValue)

	return &TradeResult{Record: record, Ledger: ledger}, nil
}

// AddToWatchlist appends contractID to the wallet's watchlist, preserving
// insertion order. Adding an existing entry is a no-op.
func (e *Executor) AddToWatchlist(ctx context.Context, walletAddress, contractID string) (*model.Ledger, error) {
	addr, err := identity.Normalize(walletAddress)
	if err != nil {
		return nil, err
	}

	if !e.locks.tryAcquire(addr) {
		return nil, fmt.Errorf("%w: %s", ErrTradeInProgress, identity.Short(addr))
	}
	defer e.locks.release(addr)

	ledger, err := e.store.Load(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if ledger.OnWatchlist(contractID) {
		return ledger, nil
	}

	ledger.Watchlist = append(ledger.Watchlist, contractID)
	if err := e.store.Save(ctx, addr, ledger); err != nil {
		return nil, fmt.Errorf("save watchlist: %w", err)
	}
	return ledger, nil
}

// RemoveFromWatchlist drops contractID from the wallet's watchlist.
// Removing a missing entry is a no-op.
func (e *Executor) RemoveFromWatchlist(ctx context.Context, walletAddress, contractID string) (*model.Ledger, error) {
	addr, err := identity.Normalize(walletAddress)
	if err != nil {
		return nil, err
	}

	if !e.locks.tryAcquire(addr) {
		return nil, fmt.Errorf("%w: %s", ErrTradeInProgress, identity.Short(addr))
	}
	defer e.locks.release(addr)

	ledger, err := e.store.Load(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	kept := ledger.Watchlist[:0]
	for _, id := range ledger.Watchlist {
		if id != contractID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(ledger.Watchlist) {
		return ledger, nil
	}
	ledger.Watchlist = kept

	if err := e.store.Save(ctx, addr, ledger); err != nil {
		return nil, fmt.Errorf("save watchlist: %w", err)
	}
	return ledger, nil
}

func (e *Executor) broadcast(addr string, record model.TradeRecord, balance, totalValue decimal.Decimal) {
	if e.wsHub == nil {
		return
	}
	e.wsHub.Broadcast(WSMessage{
		Type:       "trade_committed",
		Wallet:     identity.Short(addr),
		ContractID: record.ContractID,
		Symbol:     record.Symbol,
		Side:       record.Kind,
		Amount:     record.Amount.String(),
		Price:      record.Price.String(),
		Balance:    balance.String(),
		TotalValue: totalValue.String(),
	})
}

// clampSlippage bounds a slippage percentage to [0, maxSlippage] so net
// proceeds never flip sign.
func clampSlippage(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(maxSlippage) {
		return maxSlippage
	}
	return pct
}
