package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache for tests and local development.
// TTLs are tracked but only enforced lazily, on read.
type MemoryCache struct {
	mu      sync.Mutex
	strings map[string]memEntry
	hashes  map[string]map[string]string
	zsets   map[string]map[string]float64
}

type memEntry struct {
	value   string
	expires time.Time // zero = no expiry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		strings: make(map[string]memEntry),
		hashes:  make(map[string]map[string]string),
		zsets:   make(map[string]map[string]float64),
	}
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.strings[key] = e
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.strings[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(c.strings, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.strings, k)
		delete(c.hashes, k)
		delete(c.zsets, k)
	}
	return nil
}

func (c *MemoryCache) HSet(_ context.Context, key, field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hashes[key]
	if !ok {
		h = make(map[string]string)
		c.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (c *MemoryCache) HGet(_ context.Context, key, field string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hashes[key]
	if !ok {
		return "", false, nil
	}
	v, ok := h[field]
	return v, ok, nil
}

func (c *MemoryCache) HDel(_ context.Context, key, field string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.hashes[key]; ok {
		delete(h, field)
	}
	return nil
}

func (c *MemoryCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	for k, v := range c.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (c *MemoryCache) ZAdd(_ context.Context, key, member string, score float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	z, ok := c.zsets[key]
	if !ok {
		z = make(map[string]float64)
		c.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (c *MemoryCache) ZRem(_ context.Context, key, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if z, ok := c.zsets[key]; ok {
		delete(z, member)
	}
	return nil
}

func (c *MemoryCache) ZRangeByScoreAsc(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.zsets[key]
	members := make([]string, 0, len(z))
	for m := range z {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return z[members[i]] < z[members[j]] })
	return members, nil
}
