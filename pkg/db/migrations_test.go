package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationFiles_SortedSQLOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_column.sql":   {Data: []byte("ALTER TABLE test ADD COLUMN name TEXT;")},
		"0001_create_table.sql": {Data: []byte("CREATE TABLE test (id SERIAL PRIMARY KEY);")},
		"0010_add_index.sql":    {Data: []byte("CREATE INDEX idx_name ON test(name);")},
		"README.md":             {Data: []byte("# Migrations")},
		"nested.sql/inner.sql":  {Data: []byte("SELECT 1;")},
	}

	result, err := LoadMigrationFiles(fsys)
	if err != nil {
		t.Fatalf("db:migrations_test - unexpected error: %v", err)
	}
	want := []string{
		"CREATE TABLE test (id SERIAL PRIMARY KEY);",
		"ALTER TABLE test ADD COLUMN name TEXT;",
		"CREATE INDEX idx_name ON test(name);",
	}
	if len(result) != len(want) {
		t.Fatalf("db:migrations_test - expected %d migrations, got %d", len(want), len(result))
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("db:migrations_test - migration %d = %q, want %q", i, result[i], want[i])
		}
	}
}

func TestLoadMigrationFiles_Empty(t *testing.T) {
	result, err := LoadMigrationFiles(fstest.MapFS{})
	if err != nil {
		t.Fatalf("db:migrations_test - unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("db:migrations_test - expected no migrations, got %d", len(result))
	}
}

func TestMigrationSource_PrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0001_only.sql"), []byte("SELECT 42;"), 0o644); err != nil {
		t.Fatalf("db:migrations_test - write: %v", err)
	}

	files, origin, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("db:migrations_test - LoadMigrations() error: %v", err)
	}
	if origin != dir {
		t.Errorf("db:migrations_test - origin = %q, want %q", origin, dir)
	}
	if len(files) != 1 || files[0] != "SELECT 42;" {
		t.Errorf("db:migrations_test - files = %v", files)
	}
}

func TestMigrationSource_FallsBackToEmbedded(t *testing.T) {
	files, origin, err := LoadMigrations(filepath.Join(t.TempDir(), "nonexistent"))
	if err != nil {
		t.Fatalf("db:migrations_test - LoadMigrations() error: %v", err)
	}
	if origin != "embedded" {
		t.Errorf("db:migrations_test - origin = %q, want embedded", origin)
	}
	if len(files) < 2 {
		t.Fatalf("db:migrations_test - expected the embedded schema, got %d files", len(files))
	}
	if !strings.Contains(files[0], "call_log") || !strings.Contains(files[1], "api_keys") {
		t.Errorf("db:migrations_test - embedded schema out of order")
	}
}
