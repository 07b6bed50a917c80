package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/basesim/trade-engine/internal/model"
)

// MemoryStore implements Store with an in-memory map. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	ledgers map[string]*model.Ledger
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers: make(map[string]*model.Ledger),
	}
}

func (s *MemoryStore) Load(_ context.Context, walletAddress string) (*model.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[walletAddress]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, walletAddress)
	}
	return l.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, walletAddress string, ledger *model.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	s.ledgers[walletAddress] = ledger.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, walletAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ledgers, walletAddress)
	return nil
}
