package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/l5yth/potato-mesh/internal/models"
)

const checkpointKey = "potatomesh:bridge:checkpoint"

// RedisStore keeps the checkpoint document under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisStore{client: client, key: checkpointKey}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() {
	_ = s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load reads the checkpoint. A missing key is an empty checkpoint.
func (s *RedisStore) Load(ctx context.Context) (*models.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decodeCheckpoint(nil)
		}
		return nil, err
	}
	return decodeCheckpoint(data)
}

// Save overwrites the checkpoint key. No TTL: the cursor must outlive restarts.
func (s *RedisStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	data, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}
