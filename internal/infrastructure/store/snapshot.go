package store

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrEmptySnapshotID = errors.New("snapshot aggregate id is required")
	// ErrVersionConflict is returned by SaveSnapshot when the stored version
	// is not the one the snapshot was built on.
	ErrVersionConflict = errors.New("snapshot version conflict")
)

// Snapshot represents a point-in-time state of an aggregate
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	State         json.RawMessage `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}

// prevVersion is the version a save of s expects to replace. Zero means no
// snapshot may exist yet.
func (s *Snapshot) prevVersion() int {
	return s.Version - 1
}

func (s *Snapshot) validate() error {
	if s == nil || s.AggregateID == "" {
		return ErrEmptySnapshotID
	}
	return nil
}
