package ledger

import (
	"context"
	"sync"
)

type inMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{entries: make(map[string][]Entry)}
}

func (s *inMemoryStore) Append(_ context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.WalletID] = append(s.entries[entry.WalletID], entry)
	return nil
}

func (s *inMemoryStore) Latest(_ context.Context, walletID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.entries[walletID]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	out := make([]Entry, 0, limit)
	for i := len(log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}

func (s *inMemoryStore) DeleteByWallet(_ context.Context, walletID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.entries[walletID]))
	delete(s.entries, walletID)
	return n, nil
}

func (s *inMemoryStore) Count(_ context.Context, walletID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[walletID]), nil
}
