package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresSnapshotStore keeps one row per aggregate in cart_snapshots.
//
//	CREATE TABLE cart_snapshots (
//	    aggregate_id   TEXT PRIMARY KEY,
//	    aggregate_type TEXT NOT NULL,
//	    version        INTEGER NOT NULL,
//	    state          JSONB NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL
//	);
type PostgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

func (s *PostgresSnapshotStore) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	var snap Snapshot
	var state []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT aggregate_id, aggregate_type, version, state, created_at
		 FROM cart_snapshots
		 WHERE aggregate_id = $1`,
		aggregateID,
	).Scan(&snap.AggregateID, &snap.AggregateType, &snap.Version, &state, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snap.State = state
	return &snap, nil
}

// SaveSnapshot inserts the first version of an aggregate and otherwise
// updates the row only while it still holds the previous version.
func (s *PostgresSnapshotStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}

	var (
		result sql.Result
		err    error
	)
	if prev := snapshot.prevVersion(); prev == 0 {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO cart_snapshots (aggregate_id, aggregate_type, version, state, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (aggregate_id) DO NOTHING`,
			snapshot.AggregateID,
			snapshot.AggregateType,
			snapshot.Version,
			[]byte(snapshot.State),
			snapshot.CreatedAt,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE cart_snapshots
			 SET aggregate_type = $2, version = $3, state = $4, created_at = $5
			 WHERE aggregate_id = $1 AND version = $6`,
			snapshot.AggregateID,
			snapshot.AggregateType,
			snapshot.Version,
			[]byte(snapshot.State),
			snapshot.CreatedAt,
			prev,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}
