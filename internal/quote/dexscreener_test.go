package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

const tokenAddr = "0x4200000000000000000000000000000000000006"

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDexScreener_PrefersBaseChainPair(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"pairs":[
		{"chainId":"ethereum","baseToken":{"symbol":"WETH","name":"Wrapped Ether"},
		 "priceUsd":"2,bad","priceChange":{"h24":0},"liquidity":{"usd":0},"volume":{"h24":0}},
		{"chainId":"base","baseToken":{"symbol":"WETH","name":"Wrapped Ether"},
		 "priceUsd":"2501.5","priceChange":{"h24":-1.2},"liquidity":{"usd":3800000},"volume":{"h24":2100000}}
	]}`)

	q, err := NewDexScreener(srv.URL).GetQuote(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Symbol != "WETH" {
		t.Errorf("expected symbol WETH, got %s", q.Symbol)
	}
	if !q.PriceUSD.Equal(decimal.NewFromFloat(2501.5)) {
		t.Errorf("expected price 2501.5, got %s", q.PriceUSD)
	}
	if !q.PriceChange24h.Equal(decimal.NewFromFloat(-1.2)) {
		t.Errorf("expected change -1.2, got %s", q.PriceChange24h)
	}
}

func TestDexScreener_FallsBackToFirstPair(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"pairs":[
		{"chainId":"ethereum","baseToken":{"symbol":"PEPE","name":"Pepe"},
		 "priceUsd":"0.0000012","priceChange":{"h24":4.5},"liquidity":{"usd":900000},"volume":{"h24":120000}}
	]}`)

	q, err := NewDexScreener(srv.URL).GetQuote(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Symbol != "PEPE" {
		t.Errorf("expected symbol PEPE, got %s", q.Symbol)
	}
}

func TestDexScreener_NoPairs(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"pairs":[]}`)

	_, err := NewDexScreener(srv.URL).GetQuote(context.Background(), tokenAddr)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestDexScreener_MalformedPrice(t *testing.T) {
	tests := []string{
		`{"pairs":[{"chainId":"base","baseToken":{"symbol":"X","name":"X"},"priceUsd":""}]}`,
		`{"pairs":[{"chainId":"base","baseToken":{"symbol":"X","name":"X"},"priceUsd":"0"}]}`,
		`{"pairs":[{"chainId":"base","baseToken":{"symbol":"X","name":"X"},"priceUsd":"-1"}]}`,
		`{"pairs":[{"chainId":"base","baseToken":{"symbol":"X","name":"X"},"priceUsd":"notanumber"}]}`,
	}
	for _, body := range tests {
		srv := serve(t, http.StatusOK, body)
		_, err := NewDexScreener(srv.URL).GetQuote(context.Background(), tokenAddr)
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable for %s, got %v", body, err)
		}
	}
}

func TestDexScreener_UpstreamError(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, `{}`)

	_, err := NewDexScreener(srv.URL).GetQuote(context.Background(), tokenAddr)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider()
	if _, err := p.GetQuote(context.Background(), tokenAddr); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for unknown token, got %v", err)
	}
}
