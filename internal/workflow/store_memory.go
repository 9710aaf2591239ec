package workflow

import (
	"context"
	"fmt"
	"sync"

	id "fieldops/pkg/domain"
	"fieldops/pkg/platform/sentinel"
	"fieldops/pkg/platform/tx"
)

// InMemoryStore keeps records in a map. Writes made inside an in-memory unit
// of work are reverted if that unit fails.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.RecordID]*Record
	byCode  map[string]id.RecordID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.RecordID]*Record),
		byCode:  make(map[string]id.RecordID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("record %s: %w", record.ID, sentinel.ErrAlreadyUsed)
	}
	if record.Code != "" {
		if _, taken := s.byCode[record.Code]; taken {
			return sentinel.ErrAlreadyUsed
		}
		s.byCode[record.Code] = record.ID
	}
	s.records[record.ID] = record.Clone()

	recordID, code := record.ID, record.Code
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.records, recordID)
		if code != "" {
			delete(s.byCode, code)
		}
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.RecordID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recordID, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[recordID].Clone(), nil
}

// LockByID is FindByID; the in-memory runner already serializes units of work.
func (s *InMemoryStore) LockByID(ctx context.Context, recordID id.RecordID) (*Record, error) {
	return s.FindByID(ctx, recordID)
}

func (s *InMemoryStore) Update(ctx context.Context, record *Record, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[record.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = record.Clone()

	previous := current
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records[previous.ID] = previous
	})
	return nil
}
