package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps drafts as JSON strings under "<prefix>:<id>".  The
// Redis key outlives the validity window by retention so that a late read
// can still be told apart from an unknown id.
type RedisStore struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	retention time.Duration
	now       Clock
}

func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration, now Clock) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	if prefix == "" {
		prefix = "hotel:draft"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl, retention: ttl, now: now}
}

func (s *RedisStore) key(id string) string { return s.prefix + ":" + id }

func (s *RedisStore) Put(ctx context.Context, e Entry) (Entry, error) {
	e = stamp(e, s.now(), s.ttl)
	body, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("encode draft: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(e.ID), body, s.ttl+s.retention).Err(); err != nil {
		return Entry{}, fmt.Errorf("store draft: %w", err)
	}
	return e, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Entry, error) {
	body, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load draft: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(body, &e); err != nil {
		return Entry{}, fmt.Errorf("decode draft: %w", err)
	}
	if !Valid(e.CreatedAt, s.now(), s.ttl) {
		_ = s.Evict(ctx, id)
		return Entry{}, ErrExpired
	}
	return e, nil
}

func (s *RedisStore) Evict(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}
