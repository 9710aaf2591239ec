package audit

import (
	"context"
	"sync"

	id "fieldops/pkg/domain"
	"fieldops/pkg/platform/tx"
)

// InMemoryStore keeps history per record. Appends made inside an in-memory
// unit of work are withdrawn if that unit fails.
type InMemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	entries map[id.RecordID][]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.RecordID][]Entry)}
}

func (s *InMemoryStore) Append(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	entry.Seq = s.seq
	s.entries[entry.RecordID] = append(s.entries[entry.RecordID], *entry)

	entryID := entry.ID
	recordID := entry.RecordID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.entries[recordID]
		for i := len(list) - 1; i >= 0; i-- {
			if list[i].ID == entryID {
				s.entries[recordID] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (s *InMemoryStore) ListByRecord(_ context.Context, recordID id.RecordID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries[recordID]...), nil
}
