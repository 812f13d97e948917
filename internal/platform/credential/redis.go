package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "prms:cred:"

// RedisStore keeps credentials in Redis with a sliding TTL: every read and
// write pushes the expiry out again. A zero TTL keeps them until deleted.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sessionID uuid.UUID, key string) string {
	return redisKeyPrefix + sessionID.String() + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, sessionID uuid.UUID, key string) (string, error) {
	var cmd *redis.StringCmd
	if s.ttl > 0 {
		cmd = s.client.GetEx(ctx, redisKey(sessionID, key), s.ttl)
	} else {
		cmd = s.client.Get(ctx, redisKey(sessionID, key))
	}
	v, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credential get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID uuid.UUID, key, value string) error {
	if err := s.client.Set(ctx, redisKey(sessionID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("credential set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID uuid.UUID, key string) error {
	if err := s.client.Del(ctx, redisKey(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("credential delete: %w", err)
	}
	return nil
}

// Ping checks connectivity for the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
