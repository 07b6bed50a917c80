package engine

import "sync"

// walletLocks serializes trade execution per wallet. A trade that arrives
// while another holds the wallet's lock is rejected, not queued — the
// executor is re-entrant-unsafe by design and callers must not overlap
// trades for the same identity.
type walletLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: make(map[string]*sync.Mutex)}
}

// tryAcquire attempts to take the lock for wallet without blocking.
// Returns false if a trade is already in flight.
func (w *walletLocks) tryAcquire(wallet string) bool {
	w.mu.Lock()
	l, ok := w.locks[wallet]
	if !ok {
		l = &sync.Mutex{}
		w.locks[wallet] = l
	}
	w.mu.Unlock()

	return l.TryLock()
}

func (w *walletLocks) release(wallet string) {
	w.mu.Lock()
	l := w.locks[wallet]
	w.mu.Unlock()
	if l != nil {
		l.Unlock()
	}
}
