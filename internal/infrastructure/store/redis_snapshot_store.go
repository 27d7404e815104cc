package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore stores each snapshot as a JSON string under its
// aggregate id. A zero ttl keeps snapshots until they are overwritten.
// An expired snapshot reads as missing, so a save built on it conflicts.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func (s *RedisSnapshotStore) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	return getRedisSnapshot(ctx, s.client, aggregateID)
}

// SaveSnapshot writes inside a WATCH transaction so a concurrent writer
// between the version check and the SET aborts this save.
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	key := snapshot.AggregateID
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getRedisSnapshot(ctx, tx, key)
		if err != nil {
			return err
		}
		version := 0
		if current != nil {
			version = current.Version
		}
		if version != snapshot.prevVersion() {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return ErrVersionConflict
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// redisGetter is satisfied by both *redis.Client and *redis.Tx.
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRedisSnapshot(ctx context.Context, client redisGetter, key string) (*Snapshot, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot failed: %w", err)
	}
	return &snap, nil
}
