package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"stubborn-archivist/internal/models"
)

// RedisCheckpointStore keeps the checkpoint under a single Redis key, for
// deployments where consecutive runs land on different hosts and a shared
// filesystem is not available. A Redis SET replaces the whole value
// atomically, which gives the same no-partial-checkpoint guarantee as the
// file store's rename. The key has no TTL; the checkpoint lives until an
// operator resets it.
type RedisCheckpointStore struct {
	client *redis.Client
	key    string
}

// NewRedisCheckpointStore initializes a Redis-backed CheckpointStore.
func NewRedisCheckpointStore(addr, key string) *RedisCheckpointStore {
	return &RedisCheckpointStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

// Close closes the Redis client.
func (s *RedisCheckpointStore) Close() error {
	return s.client.Close()
}

// Load reads the checkpoint, returning the empty default if the key is
// absent.
func (s *RedisCheckpointStore) Load(ctx context.Context) (models.Checkpoint, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NewCheckpoint(), nil
		}
		return models.Checkpoint{}, err
	}

	var cp models.Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return models.Checkpoint{}, err
	}
	return cp, nil
}

// Update replaces the checkpoint value.
func (s *RedisCheckpointStore) Update(ctx context.Context, cp models.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, payload, 0).Err()
}

// Delete removes the checkpoint key (operator reset).
func (s *RedisCheckpointStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
