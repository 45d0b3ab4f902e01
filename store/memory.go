package store

import (
	"context"
	"sync"
	"time"

	"github.com/etnz/pnl"
)

// MemoryStore implements Store in memory. Used for testing and development.
type MemoryStore struct {
	mu   sync.RWMutex
	raws []pnl.RawTransfer
	seen map[key]struct{}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[key]struct{})}
}

func (s *MemoryStore) Append(_ context.Context, raws ...pnl.RawTransfer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, r := range raws {
		if _, dup := s.seen[keyOf(r)]; dup {
			continue
		}
		s.seen[keyOf(r)] = struct{}{}
		s.raws = append(s.raws, r)
		added++
	}
	return added, nil
}

func (s *MemoryStore) List(_ context.Context, since time.Time) ([]pnl.RawTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSince(s.raws, since), nil
}
