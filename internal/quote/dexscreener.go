package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/basesim/trade-engine/internal/model"
)

// DefaultBaseURL is the public DexScreener API endpoint.
const DefaultBaseURL = "https://api.dexscreener.com"

// preferredChain selects which pair to quote from when a token trades on
// multiple chains.
const preferredChain = "base"

// DexScreener fetches token quotes from the DexScreener pairs API.
type DexScreener struct {
	baseURL string
	client  *http.Client
}

// NewDexScreener creates a DexScreener provider. An empty baseURL uses the
// public API.
func NewDexScreener(baseURL string) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &DexScreener{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// pairsResponse mirrors the subset of the DexScreener response the engine
// needs. priceUsd arrives as a string; change/liquidity/volume as numbers.
type pairsResponse struct {
	Pairs []struct {
		ChainID   string `json:"chainId"`
		BaseToken struct {
			Address string `json:"address"`
			Name    string `json:"name"`
			Symbol  string `json:"symbol"`
		} `json:"baseToken"`
		PriceUSD    string `json:"priceUsd"`
		PriceChange struct {
			H24 decimal.Decimal `json:"h24"`
		} `json:"priceChange"`
		Liquidity struct {
			USD decimal.Decimal `json:"usd"`
		} `json:"liquidity"`
		Volume struct {
			H24 decimal.Decimal `json:"h24"`
		} `json:"volume"`
		Info struct {
			ImageURL string `json:"imageUrl"`
		} `json:"info"`
	} `json:"pairs"`
}

// GetQuote fetches the current quote for contractID. Tokens trading on
// several chains quote from the preferred chain's pair, falling back to the
// first listed pair.
func (d *DexScreener) GetQuote(ctx context.Context, contractID string) (*model.Quote, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", d.baseURL, contractID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: dexscreener returned %d", ErrUnavailable, resp.StatusCode)
	}

	var body pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(body.Pairs) == 0 {
		return nil, fmt.Errorf("%w: no pairs for %s", ErrUnavailable, contractID)
	}

	pair := body.Pairs[0]
	for _, p := range body.Pairs {
		if p.ChainID == preferredChain {
			pair = p
			break
		}
	}

	price, err := decimal.NewFromString(pair.PriceUSD)
	if err != nil || !price.IsPositive() {
		return nil, fmt.Errorf("%w: bad price %q for %s", ErrUnavailable, pair.PriceUSD, contractID)
	}

	return &model.Quote{
		ContractID:     contractID,
		Symbol:         pair.BaseToken.Symbol,
		Name:           pair.BaseToken.Name,
		PriceUSD:       price,
		PriceChange24h: pair.PriceChange.H24,
		LiquidityUSD:   pair.Liquidity.USD,
		Volume24h:      pair.Volume.H24,
		LogoURL:        pair.Info.ImageURL,
	}, nil
}
