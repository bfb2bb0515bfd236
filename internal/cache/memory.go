package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process cache safe for concurrent use.
//
// Expired entries are dropped lazily on Get. Entries remain in memory until
// they expire and are read, or until Evict or Clear removes them.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached value.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now := c.now(); e.expired(now) {
		c.evictExpired(key, now)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores a copy of value.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry{value: stored, expires: expires}
	c.mu.Unlock()
	return nil
}

// Evict removes a single key. Missing keys are ignored.
func (c *Memory) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// evictExpired deletes key only if the stored entry is still expired, so a
// value written since the read survives.
func (c *Memory) evictExpired(key string, now time.Time) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.expired(now) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Memory) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// read.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Memory) Close() error { return nil }
