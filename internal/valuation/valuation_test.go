package valuation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/basesim/trade-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func pos(amount, buyPrice, lastPrice float64) model.Position {
	return model.Position{
		ContractID: "0x4200000000000000000000000000000000000006",
		Symbol:     "WETH",
		Amount:     d(amount),
		BuyPrice:   d(buyPrice),
		LastPrice:  d(lastPrice),
	}
}

func TestPositionValue(t *testing.T) {
	if got := PositionValue(pos(9970, 0.01, 0.02)); !got.Equal(d(199.4)) {
		t.Errorf("expected 199.4, got %s", got)
	}
}

func TestPositionPnL(t *testing.T) {
	if got := PositionPnL(pos(100, 2, 3)); !got.Equal(d(100)) {
		t.Errorf("expected 100, got %s", got)
	}
	// Underwater position.
	if got := PositionPnL(pos(100, 3, 2)); !got.Equal(d(-100)) {
		t.Errorf("expected -100, got %s", got)
	}
}

func TestPositionPnLPercent(t *testing.T) {
	got, err := PositionPnLPercent(pos(50, 2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(50)) {
		t.Errorf("expected 50%%, got %s", got)
	}
}

func TestPositionPnLPercent_ZeroCostBasis(t *testing.T) {
	_, err := PositionPnLPercent(pos(50, 0, 3))
	if !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestPortfolioValue(t *testing.T) {
	l := &model.Ledger{
		Balance: d(1399),
		Holdings: []model.Position{
			pos(9970, 0.01, 0.01),
			pos(10, 5, 6),
		},
	}
	// 1399 + 99.7 + 60
	if got := PortfolioValue(l); !got.Equal(d(1558.7)) {
		t.Errorf("expected 1558.7, got %s", got)
	}
}

func TestPortfolioValue_EmptyHoldings(t *testing.T) {
	l := &model.Ledger{Balance: d(1500)}
	if got := PortfolioValue(l); !got.Equal(d(1500)) {
		t.Errorf("expected 1500, got %s", got)
	}
}

func TestTotalPnL(t *testing.T) {
	l := &model.Ledger{
		Balance: d(1000),
		Holdings: []model.Position{
			pos(100, 2, 3), // +100
			pos(100, 3, 2), // -100
			pos(10, 1, 4),  // +30
		},
	}
	if got := TotalPnL(l); !got.Equal(d(30)) {
		t.Errorf("expected 30, got %s", got)
	}
}

func TestWeightedAverageCost(t *testing.T) {
	// Scenario: hold 9970 @ 0.01, buy 2500 @ 0.02.
	got := WeightedAverageCost(d(9970), d(0.01), d(2500), d(0.02))
	want := d(149.7).Div(d(12470))
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestWeightedAverageCost_EmptyPosition(t *testing.T) {
	if got := WeightedAverageCost(decimal.Zero, decimal.Zero, d(100), d(0.5)); !got.Equal(d(0.5)) {
		t.Errorf("expected incoming price for empty position, got %s", got)
	}
}

func TestWeightedAverageCost_EqualLotsIsArithmeticMean(t *testing.T) {
	// Buying n equal-sized lots at increasing prices must converge to the
	// arithmetic mean of the lot prices.
	prices := []decimal.Decimal{d(1), d(2), d(3), d(4), d(5)}
	lot := d(100)

	amount := decimal.Zero
	cost := decimal.Zero
	for _, p := range prices {
		cost = WeightedAverageCost(amount, cost, lot, p)
		amount = amount.Add(lot)
	}

	if !cost.Equal(d(3)) {
		t.Errorf("expected mean 3, got %s", cost)
	}
}

func TestWeightedAverageCost_StaysBetweenFirstAndLast(t *testing.T) {
	// Strictly increasing lot prices: the running average must stay
	// strictly between the first and last lot price.
	prices := []decimal.Decimal{d(0.01), d(0.015), d(0.025), d(0.04)}
	lots := []decimal.Decimal{d(500), d(200), d(900), d(350)}

	amount := lots[0]
	cost := prices[0]
	for i := 1; i < len(prices); i++ {
		cost = WeightedAverageCost(amount, cost, lots[i], prices[i])
		amount = amount.Add(lots[i])
	}

	if !cost.GreaterThan(prices[0]) || !cost.LessThan(prices[len(prices)-1]) {
		t.Errorf("average %s should be strictly between %s and %s",
			cost, prices[0], prices[len(prices)-1])
	}
}
