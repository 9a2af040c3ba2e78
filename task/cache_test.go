package task

import (
	"testing"
	"time"
)

func TestQueryCache_GetSet(t *testing.T) {
	c := newQueryCache(10, time.Minute)

	if _, ok := c.get("task|t1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.set("task|t1", "v1")
	v, ok := c.get("task|t1")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if v.(string) != "v1" {
		t.Errorf("value = %v, want v1", v)
	}

	c.set("task|t1", "v2")
	v, _ = c.get("task|t1")
	if v.(string) != "v2" {
		t.Errorf("value after overwrite = %v, want v2", v)
	}
}

func TestQueryCache_TTLExpiry(t *testing.T) {
	c := newQueryCache(10, 20*time.Millisecond)

	c.set("task|t1", "v1")
	if _, ok := c.get("task|t1"); !ok {
		t.Fatal("expected hit within TTL")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.get("task|t1"); ok {
		t.Fatal("expected miss after TTL")
	}
	if c.len() != 0 {
		t.Errorf("len = %d, want 0 (expired entry purged on access)", c.len())
	}
}

func TestQueryCache_EvictsOldest(t *testing.T) {
	c := newQueryCache(2, time.Minute)

	c.set("a", 1)
	time.Sleep(2 * time.Millisecond)
	c.set("b", 2)
	time.Sleep(2 * time.Millisecond)
	c.set("c", 3) // at capacity, evicts "a"

	if _, ok := c.get("a"); ok {
		t.Error("expected oldest entry evicted")
	}
	if _, ok := c.get("b"); !ok {
		t.Error("expected b retained")
	}
	if _, ok := c.get("c"); !ok {
		t.Error("expected c retained")
	}
	if c.len() != 2 {
		t.Errorf("len = %d, want 2", c.len())
	}
}

func TestQueryCache_OverwriteDoesNotEvict(t *testing.T) {
	c := newQueryCache(2, time.Minute)
	c.set("a", 1)
	c.set("b", 2)
	c.set("a", 3) // overwrite, not insert
	if c.len() != 2 {
		t.Errorf("len = %d, want 2", c.len())
	}
	if _, ok := c.get("b"); !ok {
		t.Error("overwrite of a must not evict b")
	}
}

func TestQueryCache_InvalidatePattern(t *testing.T) {
	c := newQueryCache(10, time.Minute)
	c.set(agentKey("agent-1", 10), "x")
	c.set(agentKey("agent-2", 10), "y")
	c.set(pendingKey(10), "z")

	n := c.invalidatePattern(keyAgent)
	if n != 2 {
		t.Errorf("invalidated = %d, want 2", n)
	}
	if _, ok := c.get(pendingKey(10)); !ok {
		t.Error("pending entry should survive agent invalidation")
	}
	if _, ok := c.get(agentKey("agent-1", 10)); ok {
		t.Error("agent entry should be gone")
	}
}

func TestQueryCache_Clear(t *testing.T) {
	c := newQueryCache(10, time.Minute)
	c.set("a", 1)
	c.set("b", 2)
	c.clear()
	if c.len() != 0 {
		t.Errorf("len after clear = %d, want 0", c.len())
	}
}

func TestCacheKeys(t *testing.T) {
	if got := taskKey("t1"); got != "task|t1" {
		t.Errorf("taskKey = %q", got)
	}
	if got := agentKey("agent-7", 10); got != "agent_tasks|agent-7|10" {
		t.Errorf("agentKey = %q", got)
	}
	if got := pendingKey(5); got != "pending_tasks|5" {
		t.Errorf("pendingKey = %q", got)
	}
	if got := allKey(100); got != "all_tasks|100" {
		t.Errorf("allKey = %q", got)
	}
}
