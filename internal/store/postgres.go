package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/basesim/trade-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Each ledger is one row keyed by wallet address with the snapshot held as
// JSONB, matching the snapshot-granularity write model.
//
// Schema:
//
//	CREATE TABLE ledgers (
//	    wallet_address TEXT PRIMARY KEY,
//	    snapshot       JSONB NOT NULL,
//	    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context, walletAddress string) (*model.Ledger, error) {
	var snapshot []byte

	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM ledgers WHERE wallet_address = $1`, walletAddress).
		Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, walletAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", walletAddress, err)
	}

	var l model.Ledger
	if err := json.Unmarshal(snapshot, &l); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, walletAddress, err)
	}
	return &l, nil
}

func (s *PostgresStore) Save(ctx context.Context, walletAddress string, ledger *model.Ledger) error {
	snapshot, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("encode ledger %s: %w", walletAddress, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO ledgers (wallet_address, snapshot, updated_at)
		 VALUES ($1, $2::JSONB, now())
		 ON CONFLICT (wallet_address)
		 DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		walletAddress, snapshot,
	)
	if err != nil {
		return fmt.Errorf("save ledger %s: %w", walletAddress, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, walletAddress string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM ledgers WHERE wallet_address = $1`, walletAddress)
	if err != nil {
		return fmt.Errorf("delete ledger %s: %w", walletAddress, err)
	}
	return nil
}
