package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/basesim/trade-engine/internal/model"
)

// FileStore implements Store with one pretty-printed JSON file per wallet
// under a base directory. Saves use an atomic write pattern: write to a
// temporary file in the same directory, sync, then rename over the
// destination, so a crash mid-save never leaves a half-written ledger.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(walletAddress string) string {
	return filepath.Join(s.dir, "profile_"+walletAddress+".json")
}

func (s *FileStore) Load(_ context.Context, walletAddress string) (*model.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path(walletAddress))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, walletAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", walletAddress, err)
	}

	var l model.Ledger
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, walletAddress, err)
	}
	return &l, nil
}

func (s *FileStore) Save(_ context.Context, walletAddress string, ledger *model.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger %s: %w", walletAddress, err)
	}

	dst := s.path(walletAddress)
	tmp := dst + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}

	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp ledger file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, walletAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(walletAddress))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete ledger %s: %w", walletAddress, err)
	}
	return nil
}
