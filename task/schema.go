package task

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL,
	assigned_agent_id TEXT,
	priority          INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL,
	assigned_at       DATETIME,
	completed_at      DATETIME
);
CREATE INDEX IF NOT EXISTS idx_tasks_agent ON tasks(assigned_agent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_pending ON tasks(priority DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_tasks_agent_completed ON tasks(assigned_agent_id, completed_at);
`

// pragmas tune each connection for concurrent readers alongside a writer:
// WAL journaling, a 64 MiB page cache, and in-memory temp tables.
var pragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA cache_size=-64000;",
	"PRAGMA temp_store=MEMORY;",
	"PRAGMA busy_timeout=5000;",
}

// applyPragmas configures a freshly opened connection.
func applyPragmas(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return nil
}

// ensureSchema creates the tasks table and its indexes. Safe to run
// repeatedly against the same database file.
func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
