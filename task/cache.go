package task

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache key tags. Keys are "tag|arg|arg" so a mutation can drop every
// result derived from a table slice with one substring match.
const (
	keyTask    = "task"
	keyAgent   = "agent_tasks"
	keyPending = "pending_tasks"
	keyAll     = "all_tasks"
)

func taskKey(id string) string                { return keyTask + "|" + id }
func agentKey(agent string, limit int) string { return fmt.Sprintf("%s|%s|%d", keyAgent, agent, limit) }
func pendingKey(limit int) string             { return fmt.Sprintf("%s|%d", keyPending, limit) }
func allKey(limit int) string                 { return fmt.Sprintf("%s|%d", keyAll, limit) }
func agentPattern(agent string) string        { return keyAgent + "|" + agent }

type cacheEntry struct {
	value any
	at    time.Time
}

// queryCache maps cache keys to fully materialized query results.
// Entries expire ttl after insertion and the oldest entry is evicted when
// the cache is full. All operations share one mutex; eviction and pattern
// invalidation scan the whole map, which is fine at the intended sizes.
type queryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	max     int
	ttl     time.Duration
}

func newQueryCache(max int, ttl time.Duration) *queryCache {
	return &queryCache{
		entries: make(map[string]cacheEntry),
		max:     max,
		ttl:     ttl,
	}
}

// get returns the cached value for key if it has not expired.
// Expired entries are purged on access.
func (c *queryCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.at) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// set stores value under key, evicting the oldest entry if at capacity.
func (c *queryCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.at.Before(oldest) {
				oldestKey, oldest = k, e.at
			}
		}
		delete(c.entries, oldestKey)
	}
	c.entries[key] = cacheEntry{value: value, at: time.Now()}
}

// invalidatePattern removes every entry whose key contains pattern and
// returns how many were removed.
func (c *queryCache) invalidatePattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.Contains(k, pattern) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// clear removes all entries.
func (c *queryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
