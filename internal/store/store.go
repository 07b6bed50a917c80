// Package store defines the ledger persistence interface for the trade
// engine. Implementations include PostgreSQL (source of truth), a JSON file
// (single-node deployments), Redis (read-through cache), and in-memory
// (for testing).
//
// A ledger is persisted as one full snapshot per wallet; writes are
// last-writer-wins at snapshot granularity with no field-level merge.
package store

import (
	"context"
	"errors"

	"github.com/basesim/trade-engine/internal/model"
)

// ErrNotFound is returned when no ledger exists for an identity.
var ErrNotFound = errors.New("store: ledger not found")

// ErrCorrupt is returned when a stored snapshot exists but cannot be
// decoded. Callers recover by discarding and recreating the ledger; plain
// I/O and connectivity failures are never reported as ErrCorrupt.
var ErrCorrupt = errors.New("store: corrupt ledger")

// Store is the ledger persistence interface.
type Store interface {
	// Load returns the ledger for walletAddress, or an error wrapping
	// ErrNotFound when none has been created yet.
	Load(ctx context.Context, walletAddress string) (*model.Ledger, error)

	// Save persists the full ledger snapshot, replacing any previous one.
	Save(ctx context.Context, walletAddress string, ledger *model.Ledger) error

	// Delete removes the ledger for walletAddress. Deleting a missing
	// ledger is not an error.
	Delete(ctx context.Context, walletAddress string) error
}
