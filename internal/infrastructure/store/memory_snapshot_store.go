package store

import (
	"context"
	"sync"
)

// MemorySnapshotStore keeps snapshots in process memory. Used for local
// development and tests.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]Snapshot)}
}

func (s *MemorySnapshotStore) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[aggregateID]
	if !ok {
		return nil, nil
	}
	snap.State = append([]byte(nil), snap.State...)
	return &snap, nil
}

func (s *MemorySnapshotStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshots[snapshot.AggregateID].Version != snapshot.prevVersion() {
		return ErrVersionConflict
	}

	snap := *snapshot
	snap.State = append([]byte(nil), snapshot.State...)
	s.snapshots[snapshot.AggregateID] = snap
	return nil
}
