package main

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// ForecastCache stores serialized forecast responses keyed by their request.
// Forecasts are pure functions of the request, so entries never go stale.
type ForecastCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
}

// CacheKey hashes a request into a stable cache key
func CacheKey(kind string, request any) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	return "wealthforecast:" + kind + ":" + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}

// MemoryCache is an in-process ForecastCache bounded to maxEntries
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string][]byte
	order      []string
	maxEntries int
}

// NewMemoryCache creates an in-process cache; maxEntries <= 0 defaults to 256
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &MemoryCache{
		entries:    make(map[string][]byte),
		maxEntries: maxEntries,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
		// Evict oldest first
		for len(c.order) > c.maxEntries {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
	}
	c.entries[key] = value
	return nil
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache shares forecast responses between server instances
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis at addr
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

// Ping checks the redis connection
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the redis client
func (r *RedisCache) Close() error {
	return r.client.Close()
}
