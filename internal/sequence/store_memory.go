package sequence

import (
	"context"
	"sync"

	"fieldops/pkg/platform/tx"
)

// InMemoryStore keeps counters in a map. Increments made inside an
// in-memory unit of work are reverted if that unit fails.
type InMemoryStore struct {
	mu       sync.Mutex
	counters map[Key]uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{counters: make(map[Key]uint64)}
}

func (s *InMemoryStore) Increment(ctx context.Context, key Key) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.counters[key]
	next := previous + 1
	s.counters[key] = next

	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.counters[key] != next {
			return
		}
		if existed {
			s.counters[key] = previous
		} else {
			delete(s.counters, key)
		}
	})
	return next, nil
}

func (s *InMemoryStore) Current(_ context.Context, key Key) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}
