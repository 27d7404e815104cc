package store

import "context"

// SnapshotStore persists the latest serialized state of an aggregate under
// its id. A missing snapshot is reported as (nil, nil).
//
// SaveSnapshot only succeeds when the stored version is snapshot.Version-1
// (or nothing is stored and snapshot.Version is 1); otherwise it returns
// ErrVersionConflict and leaves the stored snapshot untouched.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
