package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisNamespace = "offline"

// RedisStorage keeps generations in Redis: a sorted set of generation names scored by
// creation time and one hash of encoded entries per generation. Keys share a hash tag so
// multi-key transactions stay on one cluster slot.
type RedisStorage struct {
	client    redis.UniversalClient
	namespace string
	now       func() time.Time
}

// RedisOption customises a RedisStorage.
type RedisOption func(*RedisStorage)

// WithRedisNamespace overrides the key namespace (default "offline").
func WithRedisNamespace(ns string) RedisOption {
	return func(s *RedisStorage) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithRedisClock injects the clock used to order generations.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStorage wraps an existing client.
func NewRedisStorage(client redis.UniversalClient, opts ...RedisOption) (*RedisStorage, error) {
	if client == nil {
		return nil, errors.New("offline: redis client is required")
	}
	s := &RedisStorage{client: client, namespace: defaultRedisNamespace, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *RedisStorage) generationsKey() string {
	return fmt.Sprintf("{%s}:generations", s.namespace)
}

func (s *RedisStorage) entriesKey(name string) string {
	return fmt.Sprintf("{%s}:gen:%s", s.namespace, name)
}

// Open implements Storage.
func (s *RedisStorage) Open(ctx context.Context, name string) (Cache, error) {
	if name == "" {
		return nil, errEmptyName
	}
	score := float64(s.now().UnixNano())
	if err := s.client.ZAddNX(ctx, s.generationsKey(), redis.Z{Score: score, Member: name}).Err(); err != nil {
		return nil, fmt.Errorf("offline: redis open %s: %w", name, err)
	}
	return &redisCache{storage: s, name: name}, nil
}

// Has implements Storage.
func (s *RedisStorage) Has(ctx context.Context, name string) (bool, error) {
	err := s.client.ZScore(ctx, s.generationsKey(), name).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("offline: redis has %s: %w", name, err)
	}
	return true, nil
}

// Keys implements Storage.
func (s *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := s.client.ZRange(ctx, s.generationsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("offline: redis keys: %w", err)
	}
	return names, nil
}

// Delete implements Storage.
func (s *RedisStorage) Delete(ctx context.Context, name string) (bool, error) {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, s.generationsKey(), name)
		pipe.Del(ctx, s.entriesKey(name))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("offline: redis delete %s: %w", name, err)
	}
	return removed.Val() > 0, nil
}

// Match implements Storage.
func (s *RedisStorage) Match(ctx context.Context, key string) (Entry, bool, error) {
	names, err := s.Keys(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for _, name := range names {
		c := &redisCache{storage: s, name: name}
		e, ok, err := c.Match(ctx, key)
		if err != nil {
			return Entry{}, false, err
		}
		if ok {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

type redisCache struct {
	storage *RedisStorage
	name    string
}

func (c *redisCache) Name() string { return c.name }

func (c *redisCache) Match(ctx context.Context, key string) (Entry, bool, error) {
	data, err := c.storage.client.HGet(ctx, c.storage.entriesKey(c.name), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("offline: redis match %s: %w", c.name, err)
	}
	e, err := decodeEntry(data)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (c *redisCache) Put(ctx context.Context, key string, entry Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("offline: encode entry: %w", err)
	}
	if err := c.storage.client.HSet(ctx, c.storage.entriesKey(c.name), key, data).Err(); err != nil {
		return fmt.Errorf("offline: redis put %s: %w", c.name, err)
	}
	return nil
}

func (c *redisCache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.storage.client.HKeys(ctx, c.storage.entriesKey(c.name)).Result()
	if err != nil {
		return nil, fmt.Errorf("offline: redis entry keys %s: %w", c.name, err)
	}
	return keys, nil
}
