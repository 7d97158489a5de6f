package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the multi-instance Store: webhooks and media sockets may
// land on different gateway pods, so the handoff table has to be shared.
// TTL is delegated to Redis key expiry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

const redisKeyPrefix = "call-context:"

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, callID string, sc Context) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("session: marshal context: %w", err)
	}
	return s.rdb.Set(ctx, redisKeyPrefix+callID, payload, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, callID string) (Context, error) {
	payload, err := s.rdb.Get(ctx, redisKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Context{}, ErrNotFound
	}
	if err != nil {
		return Context{}, err
	}
	var sc Context
	if err := json.Unmarshal(payload, &sc); err != nil {
		return Context{}, fmt.Errorf("session: unmarshal context: %w", err)
	}
	return sc, nil
}

func (s *RedisStore) Delete(ctx context.Context, callID string) error {
	return s.rdb.Del(ctx, redisKeyPrefix+callID).Err()
}
