package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const taskColumns = "id, title, description, assigned_agent_id, priority, created_at, assigned_at, completed_at"

// Options configures a CachedStore.
type Options struct {
	// Path is the SQLite database file.
	Path string
	// PoolSize caps how many idle connections are kept for reuse.
	PoolSize int
	// CacheSize caps how many query results are cached.
	CacheSize int
	// CacheTTL is how long a cached result stays valid.
	CacheTTL time.Duration
}

const (
	defaultPoolSize  = 5
	defaultCacheSize = 128
	defaultCacheTTL  = 30 * time.Second
)

// CachedStore is a Store backed by pooled SQLite connections with an
// in-memory result cache in front of reads. Reads consult the cache first
// and fall back to a pooled connection on miss; mutations go straight to
// the database and then drop the cache entries they may have invalidated.
type CachedStore struct {
	pool    *connPool
	cache   *queryCache
	maxPool int

	// queries counts reads that reached the database (cache misses).
	queries atomic.Int64
}

// Open opens (or creates) the task database at opts.Path, ensures the
// schema, and returns a ready store. The caller must call Close.
func Open(opts Options) (*CachedStore, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultPoolSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	pool := newConnPool(opts.Path, opts.PoolSize)
	db, err := pool.acquire()
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	pool.release(db)

	return &CachedStore{
		pool:    pool,
		cache:   newQueryCache(opts.CacheSize, opts.CacheTTL),
		maxPool: opts.PoolSize,
	}, nil
}

// Close releases the pooled connections.
func (s *CachedStore) Close() error { return s.pool.closeAll() }

// Get retrieves a task by ID. A missing task is (nil, nil).
func (s *CachedStore) Get(ctx context.Context, id string) (*Task, error) {
	key := taskKey(id)
	if v, ok := s.cache.get(key); ok {
		return v.(*Task).Clone(), nil
	}

	db, err := s.pool.acquire()
	if err != nil {
		return nil, err
	}
	defer s.pool.release(db)

	s.queries.Add(1)
	row := db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	s.cache.set(key, t)
	return t.Clone(), nil
}

// GetByAgent returns up to limit tasks assigned to agentID, newest first.
func (s *CachedStore) GetByAgent(ctx context.Context, agentID string, limit int) ([]*Task, error) {
	return s.cachedList(ctx, agentKey(agentID, limit),
		"SELECT "+taskColumns+" FROM tasks WHERE assigned_agent_id = ? ORDER BY created_at DESC"+limitClause(limit),
		agentID)
}

// GetPending returns up to limit unassigned tasks, highest priority first,
// oldest first within a priority.
func (s *CachedStore) GetPending(ctx context.Context, limit int) ([]*Task, error) {
	return s.cachedList(ctx, pendingKey(limit),
		"SELECT "+taskColumns+" FROM tasks WHERE assigned_agent_id IS NULL ORDER BY priority DESC, created_at ASC"+limitClause(limit))
}

// GetAll returns up to limit tasks, newest first.
func (s *CachedStore) GetAll(ctx context.Context, limit int) ([]*Task, error) {
	return s.cachedList(ctx, allKey(limit),
		"SELECT "+taskColumns+" FROM tasks ORDER BY created_at DESC"+limitClause(limit))
}

// cachedList is the shared read-through path for list queries: the result
// set is fully materialized, cached under key, and returned as a copy.
func (s *CachedStore) cachedList(ctx context.Context, key, query string, args ...any) ([]*Task, error) {
	if v, ok := s.cache.get(key); ok {
		return cloneTasks(v.([]*Task)), nil
	}

	db, err := s.pool.acquire()
	if err != nil {
		return nil, err
	}
	defer s.pool.release(db)

	s.queries.Add(1)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	s.cache.set(key, tasks)
	return cloneTasks(tasks), nil
}

// Add persists a new task, assigning ID and CreatedAt if unset.
func (s *CachedStore) Add(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	db, err := s.pool.acquire()
	if err != nil {
		return err
	}
	defer s.pool.release(db)

	_, err = db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, nullStr(t.AssignedAgentID), t.Priority,
		t.CreatedAt, nullTime(t.AssignedAt), nullTime(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	s.cache.invalidatePattern(keyPending)
	if t.AssignedAgentID != nil {
		s.cache.invalidatePattern(agentPattern(*t.AssignedAgentID))
	}
	return nil
}

// Update rewrites every column of an existing task.
func (s *CachedStore) Update(ctx context.Context, t *Task) error {
	db, err := s.pool.acquire()
	if err != nil {
		return err
	}
	defer s.pool.release(db)

	res, err := db.ExecContext(ctx, `
		UPDATE tasks SET
			title=?, description=?, assigned_agent_id=?, priority=?,
			assigned_at=?, completed_at=?
		WHERE id=?`,
		t.Title, t.Description, nullStr(t.AssignedAgentID), t.Priority,
		nullTime(t.AssignedAt), nullTime(t.CompletedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("update task %s: %w", t.ID, ErrNotFound)
	}

	s.cache.invalidatePattern(taskKey(t.ID))
	s.cache.invalidatePattern(keyPending)
	if t.AssignedAgentID != nil {
		s.cache.invalidatePattern(agentPattern(*t.AssignedAgentID))
	}
	return nil
}

// Delete removes a task by ID. Every agent-scoped cache entry is dropped:
// the prior owner is unknown without an extra read, so correctness wins
// over hit rate here.
func (s *CachedStore) Delete(ctx context.Context, id string) error {
	db, err := s.pool.acquire()
	if err != nil {
		return err
	}
	defer s.pool.release(db)

	res, err := db.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}

	s.cache.invalidatePattern(taskKey(id))
	s.cache.invalidatePattern(keyPending)
	s.cache.invalidatePattern(keyAgent)
	return nil
}

// ClearCache drops every cached query result.
func (s *CachedStore) ClearCache() { s.cache.clear() }

// CacheStats reports cache and pool occupancy.
func (s *CachedStore) CacheStats() CacheStats {
	return CacheStats{
		CacheSize:    s.cache.len(),
		MaxCacheSize: s.cache.max,
		CacheTTL:     s.cache.ttl,
		PoolIdleSize: s.pool.idleLen(),
		MaxPoolSize:  s.maxPool,
	}
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var agent sql.NullString
	var assignedAt, completedAt sql.NullTime

	err := s.Scan(
		&t.ID, &t.Title, &t.Description, &agent, &t.Priority,
		&t.CreatedAt, &assignedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if agent.Valid {
		t.AssignedAgentID = &agent.String
	}
	if assignedAt.Valid {
		t.AssignedAt = &assignedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
