// Package quote defines the market data provider contract and its
// implementations. The trade engine must never execute against a stale,
// zero, or defaulted price: any malformed or missing price field is
// reported as ErrUnavailable, never silently substituted.
package quote

import (
	"context"
	"errors"

	"github.com/basesim/trade-engine/internal/model"
)

// ErrUnavailable is returned when no usable quote exists for a token.
var ErrUnavailable = errors.New("quote: unavailable")

// Provider supplies current market data for a token contract.
type Provider interface {
	// GetQuote returns the current quote for contractID, or an error
	// wrapping ErrUnavailable when no valid price can be supplied.
	GetQuote(ctx context.Context, contractID string) (*model.Quote, error)
}

// StaticProvider serves quotes from a fixed map. Used for testing.
type StaticProvider struct {
	Quotes map[string]model.Quote
}

// NewStaticProvider creates a provider seeded with the given quotes.
func NewStaticProvider(quotes ...model.Quote) *StaticProvider {
	m := make(map[string]model.Quote, len(quotes))
	for _, q := range quotes {
		m[q.ContractID] = q
	}
	return &StaticProvider{Quotes: m}
}

// Set replaces the quote for a token.
func (p *StaticProvider) Set(q model.Quote) {
	p.Quotes[q.ContractID] = q
}

func (p *StaticProvider) GetQuote(_ context.Context, contractID string) (*model.Quote, error) {
	q, ok := p.Quotes[contractID]
	if !ok {
		return nil, ErrUnavailable
	}
	copy := q
	return &copy, nil
}
