// Package cache provides a two-tier read cache: a process-local map in
// front of an optional Redis tier. Entries are JSON blobs keyed by
// entity, e.g. "products:42" or "products:list:a1b2c3".
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aim840912/haode-api/internal/metrics"
	"github.com/aim840912/haode-api/pkg/logger"
)

// DefaultTTL applies when Set is called with a zero TTL.
const DefaultTTL = 5 * time.Minute

// memoryTTL caps how long the local tier may serve an entry without
// consulting Redis. Kept short so other instances' writes surface.
const memoryTTL = 30 * time.Second

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits          int64   `json:"hits"`
	MemoryHits    int64   `json:"memory_hits"`
	RedisHits     int64   `json:"redis_hits"`
	Misses        int64   `json:"misses"`
	Sets          int64   `json:"sets"`
	Invalidations int64   `json:"invalidations"`
	Entries       int     `json:"entries"`
	HitRate       float64 `json:"hit_rate"`
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Cache is the two-tier cache. A nil Redis client degrades to the
// memory tier alone.
type Cache struct {
	mu  sync.RWMutex
	mem map[string]memoryEntry

	rdb     *redis.Client
	metrics *metrics.Metrics
	log     *logger.Logger

	hits          int64
	memoryHits    int64
	redisHits     int64
	misses        int64
	sets          int64
	invalidations int64
}

// New constructs a cache. rdb and m may be nil.
func New(rdb *redis.Client, m *metrics.Metrics, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewDefault("cache")
	}
	return &Cache{
		mem:     make(map[string]memoryEntry),
		rdb:     rdb,
		metrics: m,
		log:     log,
	}
}

// Key builds the cache key for a single entity.
func Key(entity, id string) string {
	return entity + ":" + id
}

// ListKey builds the cache key for a filtered list. The filter terms
// are hashed so arbitrary query strings stay bounded.
func ListKey(entity string, terms ...string) string {
	h := fnv.New64a()
	for _, t := range terms {
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s:list:%x", entity, h.Sum64())
}

// Get returns the raw bytes for key. The second return reports whether
// the key was found in either tier. Redis hits are promoted to memory.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.mem[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		c.recordHit(&c.memoryHits)
		return entry.data, true, nil
	}

	if c.rdb == nil {
		c.recordMiss()
		return nil, false, nil
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.recordMiss()
		return nil, false, nil
	}
	if err != nil {
		c.recordMiss()
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	c.recordHit(&c.redisHits)
	c.storeMemory(key, data)
	return data, true, nil
}

func (c *Cache) recordHit(tier *int64) {
	atomic.AddInt64(&c.hits, 1)
	atomic.AddInt64(tier, 1)
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *Cache) recordMiss() {
	atomic.AddInt64(&c.misses, 1)
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

// GetJSON reads key and unmarshals it into v.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set writes raw bytes to both tiers.
func (c *Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	atomic.AddInt64(&c.sets, 1)
	c.storeMemory(key, data)

	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and writes it to both tiers.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// Invalidate removes exact keys from both tiers.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	atomic.AddInt64(&c.invalidations, int64(len(keys)))

	c.mu.Lock()
	for _, key := range keys {
		delete(c.mem, key)
	}
	c.mu.Unlock()

	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// InvalidatePattern removes every key matching a glob pattern, e.g.
// "products:*" after any catalog write.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) error {
	atomic.AddInt64(&c.invalidations, 1)

	prefix := strings.TrimSuffix(pattern, "*")
	c.mu.Lock()
	for key := range c.mem {
		if strings.HasPrefix(key, prefix) {
			delete(c.mem, key)
		}
	}
	c.mu.Unlock()

	if c.rdb == nil {
		return nil
	}

	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

// InvalidateEntity drops every cached entry for an entity, single rows
// and lists alike. Used by the realtime listener when a table changes
// outside this process.
func (c *Cache) InvalidateEntity(ctx context.Context, entity string) error {
	return c.InvalidatePattern(ctx, entity+":*")
}

// Loader produces the value to prime under a key.
type Loader func(ctx context.Context) (any, error)

// WarmUp primes the cache from the given loaders. Individual loader
// failures are logged and skipped so one bad entity does not block
// startup. Returns the number of keys primed.
func (c *Cache) WarmUp(ctx context.Context, loaders map[string]Loader, ttl time.Duration) int {
	primed := 0
	for key, load := range loaders {
		v, err := load(ctx)
		if err != nil {
			c.log.WithError(err).WithField("key", key).Warnf("cache warm-up loader failed")
			continue
		}
		if err := c.SetJSON(ctx, key, v, ttl); err != nil {
			c.log.WithError(err).WithField("key", key).Warnf("cache warm-up set failed")
			continue
		}
		primed++
	}
	c.log.WithField("primed", primed).Info("cache warm-up complete")
	return primed
}

// Stats returns a counter snapshot.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.mem)
	c.mu.RUnlock()

	s := Stats{
		Hits:          atomic.LoadInt64(&c.hits),
		MemoryHits:    atomic.LoadInt64(&c.memoryHits),
		RedisHits:     atomic.LoadInt64(&c.redisHits),
		Misses:        atomic.LoadInt64(&c.misses),
		Sets:          atomic.LoadInt64(&c.sets),
		Invalidations: atomic.LoadInt64(&c.invalidations),
		Entries:       entries,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *Cache) storeMemory(key string, data []byte) {
	c.mu.Lock()
	c.mem[key] = memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(memoryTTL),
	}
	c.mu.Unlock()
}
