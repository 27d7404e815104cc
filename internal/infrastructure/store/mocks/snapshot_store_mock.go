package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
)

// MockSnapshotStore is an in-memory SnapshotStore that records calls and
// can be told to fail.
type MockSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]store.Snapshot

	SaveCalls []store.Snapshot
	GetCalls  []string

	GetErr  error
	SaveErr error
}

func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{snapshots: make(map[string]store.Snapshot)}
}

func (m *MockSnapshotStore) GetSnapshot(ctx context.Context, aggregateID string) (*store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, aggregateID)
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	snap, ok := m.snapshots[aggregateID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *MockSnapshotStore) SaveSnapshot(ctx context.Context, snapshot *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.snapshots[snapshot.AggregateID].Version != snapshot.Version-1 {
		return store.ErrVersionConflict
	}

	snap := *snapshot
	snap.State = append([]byte(nil), snapshot.State...)
	m.SaveCalls = append(m.SaveCalls, snap)
	m.snapshots[snapshot.AggregateID] = snap
	return nil
}

// SetSnapshot seeds a snapshot without recording a save call.
func (m *MockSnapshotStore) SetSnapshot(snapshot store.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.AggregateID] = snapshot
}

// LastSaved returns the most recently saved snapshot, if any.
func (m *MockSnapshotStore) LastSaved() (store.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SaveCalls) == 0 {
		return store.Snapshot{}, false
	}
	return m.SaveCalls[len(m.SaveCalls)-1], true
}
