package task

import (
	"os"
	"path/filepath"
	"testing"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "taskvault-pool-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	path := f.Name()
	t.Cleanup(func() { os.Remove(path) })
	return path
}

func TestConnPool_ReusesIdleConnection(t *testing.T) {
	p := newConnPool(tempDBPath(t), 2)
	t.Cleanup(func() { p.closeAll() })

	db1, err := p.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.release(db1)
	if p.idleLen() != 1 {
		t.Fatalf("idleLen = %d, want 1", p.idleLen())
	}

	db2, err := p.acquire()
	if err != nil {
		t.Fatalf("acquire again: %v", err)
	}
	if db1 != db2 {
		t.Error("expected idle connection to be reused")
	}
	p.release(db2)
}

func TestConnPool_CapDiscardsExcess(t *testing.T) {
	p := newConnPool(tempDBPath(t), 1)
	t.Cleanup(func() { p.closeAll() })

	db1, err := p.acquire()
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	db2, err := p.acquire()
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	if db1 == db2 {
		t.Fatal("expected a second distinct connection beyond capacity")
	}

	p.release(db1)
	p.release(db2) // over capacity, closed instead of parked
	if p.idleLen() != 1 {
		t.Errorf("idleLen = %d, want 1", p.idleLen())
	}
}

func TestConnPool_OpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "sub", "pool.db")
	p := newConnPool(path, 1)
	if _, err := p.acquire(); err == nil {
		t.Fatal("expected error opening database in missing directory")
	}
}

func TestConnPool_CloseAll(t *testing.T) {
	p := newConnPool(tempDBPath(t), 3)
	db, err := p.acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.release(db)

	if err := p.closeAll(); err != nil {
		t.Fatalf("closeAll: %v", err)
	}
	if p.idleLen() != 0 {
		t.Errorf("idleLen after closeAll = %d, want 0", p.idleLen())
	}
}
