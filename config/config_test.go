package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskvault.yaml")
	data := `
server:
  addr: ":8080"
auth:
  jwt_secret: sekrit
  admin_user: ops
store:
  path: /tmp/tv.db
  pool_size: 10
  cache_size: 256
  cache_ttl: 45s
log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "sekrit" || cfg.Auth.AdminUser != "ops" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Store.Path != "/tmp/tv.db" || cfg.Store.PoolSize != 10 || cfg.Store.CacheSize != 256 {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Store.CacheTTL.Std() != 45*time.Second {
		t.Errorf("CacheTTL = %v, want 45s", cfg.Store.CacheTTL.Std())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_DefaultsPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Server.Addr != def.Server.Addr {
		t.Errorf("Addr = %q, want default %q", cfg.Server.Addr, def.Server.Addr)
	}
	if cfg.Store.PoolSize != def.Store.PoolSize || cfg.Store.CacheTTL != def.Store.CacheTTL {
		t.Errorf("Store = %+v, want defaults", cfg.Store)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("store:\n  cache_ttl: soonish\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}
