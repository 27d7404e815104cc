package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
)

// Persister loads and saves the state of one cart.
type Persister interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// SnapshotPersister stores cart state as a JSON snapshot under a fixed id.
type SnapshotPersister struct {
	snapshots store.SnapshotStore
	id        string
}

func NewSnapshotPersister(snapshots store.SnapshotStore, id string) *SnapshotPersister {
	return &SnapshotPersister{snapshots: snapshots, id: id}
}

// Load returns an empty state when nothing has been saved yet.
func (p *SnapshotPersister) Load(ctx context.Context) (State, error) {
	snap, err := p.snapshots.GetSnapshot(ctx, p.id)
	if err != nil {
		return State{}, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if snap == nil {
		return State{Items: []LineItem{}}, nil
	}

	var state State
	if err := json.Unmarshal(snap.State, &state); err != nil {
		return State{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	state.Version = snap.Version
	return state, nil
}

func (p *SnapshotPersister) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal cart state: %w", err)
	}

	return p.snapshots.SaveSnapshot(ctx, &store.Snapshot{
		AggregateID:   p.id,
		AggregateType: AggregateType,
		Version:       state.Version,
		State:         data,
		CreatedAt:     state.UpdatedAt,
	})
}
