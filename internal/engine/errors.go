package engine

import "errors"

// Trade rejection errors. Every rejection leaves the ledger byte-identical
// to its pre-call state; nothing is retried automatically.
var (
	// ErrInsufficientBalance is returned when quoteAmount + fee exceeds
	// the wallet's balance.
	ErrInsufficientBalance = errors.New("engine: insufficient balance")

	// ErrInsufficientHoldings is returned when a sell asks for more
	// tokens than the position holds, or no position exists at all.
	ErrInsufficientHoldings = errors.New("engine: insufficient holdings")

	// ErrBelowMinimum is returned when a buy is below the minimum trade
	// size, or a sell's net proceeds would not cover the fee.
	ErrBelowMinimum = errors.New("engine: trade below minimum")

	// ErrTradeInProgress is returned when a second trade is issued for a
	// wallet before the first settles. Trades are never queued.
	ErrTradeInProgress = errors.New("engine: trade already in progress for wallet")
)
