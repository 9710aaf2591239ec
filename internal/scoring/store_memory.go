package scoring

import (
	"context"
	"sync"

	id "fieldops/pkg/domain"
	"fieldops/pkg/platform/sentinel"
	"fieldops/pkg/platform/tx"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[id.RecordID]Snapshot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[id.RecordID]Snapshot)}
}

func (s *InMemoryStore) Create(ctx context.Context, snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.snapshots[snapshot.InspectionID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.snapshots[snapshot.InspectionID] = *snapshot

	inspectionID := snapshot.InspectionID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.snapshots, inspectionID)
	})
	return nil
}

func (s *InMemoryStore) FindByInspection(_ context.Context, inspectionID id.RecordID) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[inspectionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &snap, nil
}
