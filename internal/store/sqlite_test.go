package store

import (
	"path/filepath"
	"testing"

	"market-sim/internal/config"
)

func TestNewSQLite_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "market.db")
	s, err := NewSQLite(config.DatabaseConfig{Path: path, MaxOpenConns: 2, MaxIdleConns: 2})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().Get(&mode, "PRAGMA journal_mode;"); err != nil {
		t.Fatalf("query journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected wal journal mode, got %q", mode)
	}
}

func TestNewSQLite_InMemory(t *testing.T) {
	s, err := NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	defer s.Close()

	if _, err := s.DB().Exec("CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	var n int
	if err := s.DB().Get(&n, "SELECT COUNT(*) FROM t"); err != nil {
		t.Fatalf("count: %v", err)
	}
}

func TestWithParams(t *testing.T) {
	if got := withParams("a.db", "x=1"); got != "a.db?x=1" {
		t.Errorf("unexpected dsn %q", got)
	}
	if got := withParams("file:a.db?cache=shared", "x=1"); got != "file:a.db?cache=shared&x=1" {
		t.Errorf("unexpected dsn %q", got)
	}
}
