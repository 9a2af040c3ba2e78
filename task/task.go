// Package task defines the task model and its cache-augmented SQLite persistence.
package task

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by mutations targeting a task that does not exist.
// Reads report absence as a nil task, not an error.
var ErrNotFound = errors.New("task not found")

// Task is a unit of work handed to an agent.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	AssignedAgentID *string    `json:"assigned_agent_id,omitempty"`
	Priority        int        `json:"priority"`
	CreatedAt       time.Time  `json:"created_at"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Pending reports whether the task is unassigned and therefore eligible
// for GetPending.
func (t *Task) Pending() bool { return t.AssignedAgentID == nil }

// Clone returns a deep copy. The store hands out clones so callers can
// mutate results without corrupting cached values.
func (t *Task) Clone() *Task {
	c := *t
	if t.AssignedAgentID != nil {
		v := *t.AssignedAgentID
		c.AssignedAgentID = &v
	}
	if t.AssignedAt != nil {
		v := *t.AssignedAt
		c.AssignedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

func cloneTasks(tasks []*Task) []*Task {
	out := make([]*Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// Store persists and retrieves tasks.
type Store interface {
	// Get retrieves a task by ID. A missing task is (nil, nil).
	Get(ctx context.Context, id string) (*Task, error)

	// GetByAgent returns up to limit tasks assigned to agentID, newest first.
	GetByAgent(ctx context.Context, agentID string, limit int) ([]*Task, error)

	// GetPending returns up to limit unassigned tasks, highest priority
	// first, oldest first within a priority.
	GetPending(ctx context.Context, limit int) ([]*Task, error)

	// GetAll returns up to limit tasks, newest first.
	GetAll(ctx context.Context, limit int) ([]*Task, error)

	// Add persists a new task, assigning ID and CreatedAt if unset.
	Add(ctx context.Context, t *Task) error

	// Update rewrites every column of an existing task.
	Update(ctx context.Context, t *Task) error

	// Delete removes a task by ID.
	Delete(ctx context.Context, id string) error

	// ClearCache drops every cached query result.
	ClearCache()

	// CacheStats reports cache and pool occupancy.
	CacheStats() CacheStats

	// Close releases all pooled connections.
	Close() error
}

// CacheStats is a point-in-time snapshot of cache and pool state.
type CacheStats struct {
	CacheSize    int           `json:"cache_size"`
	MaxCacheSize int           `json:"max_cache_size"`
	CacheTTL     time.Duration `json:"cache_ttl"`
	PoolIdleSize int           `json:"pool_idle_size"`
	MaxPoolSize  int           `json:"max_pool_size"`
}
