package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/basesim/trade-engine/internal/identity"
	"github.com/basesim/trade-engine/internal/model"
	"github.com/basesim/trade-engine/internal/profile"
	"github.com/basesim/trade-engine/internal/quote"
	"github.com/basesim/trade-engine/internal/store"
	"github.com/basesim/trade-engine/internal/valuation"
)

// Service exposes the trade engine over HTTP. It is a thin layer: every
// business decision lives in the executor and the profile manager.
type Service struct {
	executor *Executor
	profiles *profile.Manager
	quotes   quote.Provider
}

// NewService creates the HTTP service.
func NewService(executor *Executor, profiles *profile.Manager, quotes quote.Provider) *Service {
	return &Service{
		executor: executor,
		profiles: profiles,
		quotes:   quotes,
	}
}

// Routes mounts all API handlers on r.
func (s *Service) Routes(r chi.Router) {
	r.Post("/connect", s.Connect)
	r.Post("/trade/buy", s.Buy)
	r.Post("/trade/sell", s.Sell)
	r.Get("/portfolio/{walletAddress}", s.GetPortfolio)
	r.Get("/history/{walletAddress}", s.GetHistory)
	r.Post("/profile/{walletAddress}/reset", s.ResetProfile)
	r.Post("/watchlist/{walletAddress}", s.AddWatchlist)
	r.Delete("/watchlist/{walletAddress}/{contractID}", s.RemoveWatchlist)
	r.Get("/quote/{contractID}", s.GetQuote)
}

// --- Request/Response types ---

// ConnectRequest is the JSON body for POST /connect.
type ConnectRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// ConnectResponse returns the wallet's ledger and how it was obtained.
// Status "recovered" tells the UI the stored profile was corrupt and has
// been reset to a fresh balance.
type ConnectResponse struct {
	Status  profile.Status `json:"status"`
	Profile *model.Ledger  `json:"profile"`
}

// BuyRequest is the JSON body for POST /trade/buy.
type BuyRequest struct {
	WalletAddress string          `json:"wallet_address"`
	ContractID    string          `json:"contract_id"`
	QuoteAmount   decimal.Decimal `json:"usdc_amount"`
	SlippagePct   decimal.Decimal `json:"slippage_pct"`
}

// SellRequest is the JSON body for POST /trade/sell.
type SellRequest struct {
	WalletAddress string          `json:"wallet_address"`
	ContractID    string          `json:"contract_id"`
	TokenAmount   decimal.Decimal `json:"token_amount"`
	SlippagePct   decimal.Decimal `json:"slippage_pct"`
}

// PositionView is a holding enriched with valuation figures for display.
type PositionView struct {
	model.Position
	Value      decimal.Decimal `json:"value"`
	PnL        decimal.Decimal `json:"pnl"`
	PnLPercent decimal.Decimal `json:"pnl_percent"`
}

// PortfolioResponse is the JSON body for GET /portfolio/{walletAddress}.
type PortfolioResponse struct {
	WalletAddress string          `json:"wallet_address"`
	Balance       decimal.Decimal `json:"balance"`
	Holdings      []PositionView  `json:"holdings"`
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	Watchlist     []string        `json:"watchlist"`
}

// HistoryResponse is the JSON body for GET /history/{walletAddress}.
type HistoryResponse struct {
	WalletAddress string              `json:"wallet_address"`
	Trades        []model.TradeRecord `json:"trades"`
	ValueHistory  []model.ValuePoint  `json:"value_history"`
}

// WatchlistRequest is the JSON body for POST /watchlist/{walletAddress}.
type WatchlistRequest struct {
	ContractID string `json:"contract_id"`
}

// --- HTTP Handlers ---

// Connect handles POST /api/v1/connect.
func (s *Service) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ledger, status, err := s.profiles.GetOrCreate(r.Context(), req.WalletAddress)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConnectResponse{Status: status, Profile: ledger})
}

// Buy handles POST /api/v1/trade/buy.
func (s *Service) Buy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContractID == "" {
		writeError(w, "contract_id is required", http.StatusBadRequest)
		return
	}

	result, err := s.executor.Buy(r.Context(), req.WalletAddress, req.ContractID, req.QuoteAmount, req.SlippagePct)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Sell handles POST /api/v1/trade/sell.
func (s *Service) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContractID == "" {
		writeError(w, "contract_id is required", http.StatusBadRequest)
		return
	}

	result, err := s.executor.Sell(r.Context(), req.WalletAddress, req.ContractID, req.TokenAmount, req.SlippagePct)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetPortfolio handles GET /api/v1/portfolio/{walletAddress}.
// Returns the ledger's holdings enriched with valuation figures.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ledger, _, err := s.profiles.GetOrCreate(r.Context(), chi.URLParam(r, "walletAddress"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	holdings := make([]PositionView, 0, len(ledger.Holdings))
	for _, p := range ledger.Holdings {
		pct, err := valuation.PositionPnLPercent(p)
		if err != nil {
			// A zero cost basis cannot occur by construction; surface
			// it rather than render misleading figures.
			writeError(w, "corrupt position state", http.StatusInternalServerError)
			return
		}
		holdings = append(holdings, PositionView{
			Position:   p,
			Value:      valuation.PositionValue(p),
			PnL:        valuation.PositionPnL(p),
			PnLPercent: pct,
		})
	}

	writeJSON(w, http.StatusOK, PortfolioResponse{
		WalletAddress: ledger.WalletAddress,
		Balance:       ledger.Balance,
		Holdings:      holdings,
		TotalValue:    valuation.PortfolioValue(ledger),
		TotalPnL:      valuation.TotalPnL(ledger),
		Watchlist:     ledger.Watchlist,
	})
}

// GetHistory handles GET /api/v1/history/{walletAddress}.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	ledger, _, err := s.profiles.GetOrCreate(r.Context(), chi.URLParam(r, "walletAddress"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		WalletAddress: ledger.WalletAddress,
		Trades:        ledger.TradeHistory,
		ValueHistory:  ledger.ValueHistory,
	})
}

// ResetProfile handles POST /api/v1/profile/{walletAddress}/reset.
func (s *Service) ResetProfile(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.profiles.Reset(r.Context(), chi.URLParam(r, "walletAddress"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

// AddWatchlist handles POST /api/v1/watchlist/{walletAddress}.
func (s *Service) AddWatchlist(w http.ResponseWriter, r *http.Request) {
	var req WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContractID == "" {
		writeError(w, "contract_id is required", http.StatusBadRequest)
		return
	}

	ledger, err := s.executor.AddToWatchlist(r.Context(), chi.URLParam(r, "walletAddress"), req.ContractID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"watchlist": ledger.Watchlist})
}

// RemoveWatchlist handles DELETE /api/v1/watchlist/{walletAddress}/{contractID}.
func (s *Service) RemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.executor.RemoveFromWatchlist(r.Context(),
		chi.URLParam(r, "walletAddress"), chi.URLParam(r, "contractID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"watchlist": ledger.Watchlist})
}

// GetQuote handles GET /api/v1/quote/{contractID}. Display-only; the trade
// path fetches its own quote at execution time.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.quotes.GetQuote(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// --- Helpers ---

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidFormat):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrBelowMinimum):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientHoldings),
		errors.Is(err, ErrTradeInProgress):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, quote.ErrUnavailable):
		writeError(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
