package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/genc/internal/wire"
)

// cacheKeyDomain separates cached completion keys from other hashes.
const cacheKeyDomain = "genc/inference/v1"

// ErrCacheMiss is returned by Cache.Get when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores completions by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// CachedBackend serves repeated prompts for the same model from a Cache.
// Cache failures are treated as misses on read and logged on write.
type CachedBackend struct {
	uri     string
	backend Backend
	cache   Cache
	logger  *slog.Logger
}

// NewCachedBackend wraps backend for the model named uri. A nil logger
// uses slog.Default.
func NewCachedBackend(uri string, backend Backend, cache Cache, logger *slog.Logger) *CachedBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedBackend{uri: uri, backend: backend, cache: cache, logger: logger}
}

// CacheKey derives the cache key for prompt on model uri. Prompts that are
// canonically equivalent under NFC share a key.
func CacheKey(uri, prompt string) string {
	return wire.HashWithDomain(cacheKeyDomain, []byte(uri+"\x00"+norm.NFC.String(prompt)))
}

func (c *CachedBackend) Infer(ctx context.Context, prompt string) (string, error) {
	key := CacheKey(c.uri, prompt)
	out, err := c.cache.Get(ctx, key)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.WarnContext(ctx, "inference cache read failed", "model", c.uri, "error", err)
	}
	out, err = c.backend.Infer(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, out); err != nil {
		c.logger.WarnContext(ctx, "inference cache write failed", "model", c.uri, "error", err)
	}
	return out, nil
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *MemoryCache) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisCache stores completions in redis with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisCache{client: client, prefix: "genc:inference:", ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
