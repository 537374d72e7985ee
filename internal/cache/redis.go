package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the redis-backed cache backend. The logical TTL lives inside
// the stored envelope; the physical redis expiration is extended by the stale
// retention window so expired entries remain readable for the
// stale-while-error fallback.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewRedisStore(ctx context.Context, addr, password string, db int, retention time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	if retention <= 0 {
		retention = DefaultStaleRetention
	}
	return &RedisStore{client: client, retention: retention, now: time.Now}, nil
}

// redisKey namespaces the caller's key without re-hashing it, so redis keys
// stay traceable to the file backend's filenames for the same logical key.
func (s *RedisStore) redisKey(key string) string {
	return "billtracker:cache:" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	e, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if e.expired(s.now()) {
		return nil, ErrMiss
	}
	return e.Value, nil
}

func (s *RedisStore) GetStale(ctx context.Context, key string) ([]byte, error) {
	e, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (s *RedisStore) read(ctx context.Context, key string) (entry, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return entry{}, ErrMiss
	}
	if err != nil {
		return entry{}, fmt.Errorf("cache read: %w", err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		_ = s.client.Del(ctx, s.redisKey(key)).Err()
		return entry{}, ErrMiss
	}
	return e, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{
		Key:        key,
		CreatedAt:  s.now(),
		TTLSeconds: int64(ttl / time.Second),
		Value:      json.RawMessage(value),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), raw, ttl+s.retention).Err(); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
