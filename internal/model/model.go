// Package model defines the core domain types shared across the trade engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Trade kinds recorded in a ledger's trade history.
const (
	KindBuy  = "BUY"
	KindSell = "SELL"
)

// Position is a held quantity of one token together with its cost basis.
// BuyPrice is the volume-weighted average price paid for the currently held
// amount; it is only ever set from a strictly positive trade price.
type Position struct {
	ContractID string          `json:"contractAddress"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	BuyPrice   decimal.Decimal `json:"buyPrice"`
	LastPrice  decimal.Decimal `json:"lastPrice"`
	LogoURL    string          `json:"logoUrl,omitempty"`
}

// TradeRecord is an immutable record of one executed trade.
// Once appended to a ledger's history it is never modified or reordered.
type TradeRecord struct {
	ID          string           `json:"id"`
	Kind        string           `json:"type"` // BUY or SELL
	ContractID  string           `json:"contractAddress"`
	Symbol      string           `json:"token"`
	Amount      decimal.Decimal  `json:"amount"`
	Price       decimal.Decimal  `json:"price"`
	QuoteValue  decimal.Decimal  `json:"usdcValue"`
	SlippagePct decimal.Decimal  `json:"slippage"`
	FeeAmount   decimal.Decimal  `json:"fee"`
	RealizedPnL *decimal.Decimal `json:"profitLoss,omitempty"` // SELL only
	Timestamp   time.Time        `json:"timestamp"`
}

// ValuePoint is one snapshot in the portfolio value history.
type ValuePoint struct {
	Timestamp  time.Time       `json:"timestamp"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// Ledger is the full simulated financial state for one wallet identity.
// The JSON field names mirror the persisted profile format of the browser
// client, so stored profiles round-trip losslessly.
type Ledger struct {
	WalletAddress string          `json:"walletAddress"`
	Balance       decimal.Decimal `json:"fakeUSDCBalance"`
	Holdings      []Position      `json:"portfolio"`
	TradeHistory  []TradeRecord   `json:"tradeHistory"`
	ValueHistory  []ValuePoint    `json:"portfolioValueHistory"`
	Watchlist     []string        `json:"watchlist"`

	// Auxiliary UI state carried on the same record but outside the
	// trading core. Kept opaque so unknown shapes survive a round-trip.
	AIInsights json.RawMessage `json:"aiInsights,omitempty"`
	Alerts     json.RawMessage `json:"alerts,omitempty"`
	Settings   json.RawMessage `json:"settings,omitempty"`
}

// FindPosition returns the position for contractID, or nil if none is held.
func (l *Ledger) FindPosition(contractID string) *Position {
	for i := range l.Holdings {
		if l.Holdings[i].ContractID == contractID {
			return &l.Holdings[i]
		}
	}
	return nil
}

// RemovePosition deletes the position for contractID, preserving the order
// of the remaining holdings.
func (l *Ledger) RemovePosition(contractID string) {
	for i := range l.Holdings {
		if l.Holdings[i].ContractID == contractID {
			l.Holdings = append(l.Holdings[:i], l.Holdings[i+1:]...)
			return
		}
	}
}

// OnWatchlist reports whether contractID is on the watchlist.
func (l *Ledger) OnWatchlist(contractID string) bool {
	for _, id := range l.Watchlist {
		if id == contractID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the ledger. Stores hand out clones so callers
// can never mutate persisted state without an explicit Save.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.Holdings = append([]Position(nil), l.Holdings...)
	c.TradeHistory = append([]TradeRecord(nil), l.TradeHistory...)
	c.ValueHistory = append([]ValuePoint(nil), l.ValueHistory...)
	c.Watchlist = append([]string(nil), l.Watchlist...)
	c.AIInsights = append(json.RawMessage(nil), l.AIInsights...)
	c.Alerts = append(json.RawMessage(nil), l.Alerts...)
	c.Settings = append(json.RawMessage(nil), l.Settings...)
	for i := range c.TradeHistory {
		if p := c.TradeHistory[i].RealizedPnL; p != nil {
			v := *p
			c.TradeHistory[i].RealizedPnL = &v
		}
	}
	return &c
}

// Quote is a market snapshot for one token, as returned by the market data
// provider. Symbol and Name describe the token so the engine can open a
// position without a second lookup.
type Quote struct {
	ContractID     string          `json:"contract_id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	PriceUSD       decimal.Decimal `json:"price_usd"`
	PriceChange24h decimal.Decimal `json:"price_change_24h"`
	LiquidityUSD   decimal.Decimal `json:"liquidity_usd"`
	Volume24h      decimal.Decimal `json:"volume_24h"`
	LogoURL        string          `json:"logo_url,omitempty"`
}
