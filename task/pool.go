package task

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// connPool hands out SQLite connections against a single database file.
// Each handle is a *sql.DB pinned to one underlying connection
// (SetMaxOpenConns(1)) so statements on it execute in issue order.
//
// The max size caps how many idle handles are retained for reuse, not how
// many may be open at once: under contention acquire opens past the cap and
// release closes the surplus instead of blocking callers.
type connPool struct {
	path string
	max  int

	mu   sync.Mutex
	idle []*sql.DB
}

func newConnPool(path string, max int) *connPool {
	return &connPool{path: path, max: max}
}

// acquire returns an idle connection if one exists, otherwise opens a new one.
func (p *connPool) acquire() (*sql.DB, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		db := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return db, nil
	}
	p.mu.Unlock()
	return p.open()
}

// release returns a connection to the idle pool, closing it if the pool
// is already at capacity.
func (p *connPool) release(db *sql.DB) {
	p.mu.Lock()
	if len(p.idle) < p.max {
		p.idle = append(p.idle, db)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	_ = db.Close()
}

func (p *connPool) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", p.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", p.path, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// idleLen reports how many connections are parked for reuse.
func (p *connPool) idleLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// closeAll closes every idle connection. Connections checked out at the
// time of the call are closed by release once the pool is capped at zero.
func (p *connPool) closeAll() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.max = 0
	p.mu.Unlock()

	var firstErr error
	for _, db := range idle {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
