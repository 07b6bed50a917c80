// Package valuation implements the pure portfolio math of the trade engine:
// position value, unrealized P&L, portfolio totals, and the weighted-average
// cost basis rule applied on every buy into an existing position.
//
// All functions are side-effect free and all monetary values use
// shopspring/decimal — never float64 for money.
package valuation

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/basesim/trade-engine/internal/model"
)

// ErrDivisionByZero is returned when a P&L percentage is requested for a
// position with a zero cost basis. Positions are only created with a
// strictly positive trade price, so hitting this indicates corrupt state.
var ErrDivisionByZero = errors.New("valuation: zero cost basis")

var hundred = decimal.NewFromInt(100)

// PositionValue returns the mark-to-market value of a position:
//
//	value = amount * lastPrice
func PositionValue(p model.Position) decimal.Decimal {
	return p.Amount.Mul(p.LastPrice)
}

// PositionPnL returns the unrealized profit or loss of a position against
// its cost basis:
//
//	pnl = (lastPrice - buyPrice) * amount
func PositionPnL(p model.Position) decimal.Decimal {
	return p.LastPrice.Sub(p.BuyPrice).Mul(p.Amount)
}

// PositionPnLPercent returns the unrealized P&L as a percentage of the
// cost basis:
//
//	pct = (lastPrice - buyPrice) / buyPrice * 100
func PositionPnLPercent(p model.Position) (decimal.Decimal, error) {
	if p.BuyPrice.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return p.LastPrice.Sub(p.BuyPrice).Div(p.BuyPrice).Mul(hundred), nil
}

// PortfolioValue returns the total value of a ledger: the cash balance plus
// every holding marked at its last known price.
func PortfolioValue(l *model.Ledger) decimal.Decimal {
	total := l.Balance
	for _, p := range l.Holdings {
		total = total.Add(PositionValue(p))
	}
	return total
}

// TotalPnL returns the sum of unrealized P&L across all holdings. Realized
// P&L from closed positions lives on the SELL trade records and is not
// re-derived here.
func TotalPnL(l *model.Ledger) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.Holdings {
		total = total.Add(PositionPnL(p))
	}
	return total
}

// WeightedAverageCost returns the new cost basis after buying incomingAmount
// tokens at incomingPrice into a position of existingAmount tokens carried
// at existingCost:
//
//	(existingAmount*existingCost + incomingAmount*incomingPrice) / (existingAmount + incomingAmount)
//
// This is the single rule for updating a position's buy price; repeated
// partial buys converge to the true volume-weighted average.
func WeightedAverageCost(existingAmount, existingCost, incomingAmount, incomingPrice decimal.Decimal) decimal.Decimal {
	if existingAmount.IsZero() {
		return incomingPrice
	}
	return existingAmount.Mul(existingCost).
		Add(incomingAmount.Mul(incomingPrice)).
		Div(existingAmount.Add(incomingAmount))
}
