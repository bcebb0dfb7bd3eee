package db

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"

	"github.com/morezero/webf/migrations"
)

const migrationsLogPrefix = "db:migrations"

// MigrationSource picks where migration files are read from: dir on disk when
// it exists, otherwise the schema embedded in the binary.
func MigrationSource(dir string) (fs.FS, string) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir), dir
		}
	}
	return migrations.FS, "embedded"
}

// LoadMigrationFiles reads all .sql files from fsys, sorted by name, and
// returns their contents.
func LoadMigrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migrations: %w", migrationsLogPrefix, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, name, err)
		}
		out = append(out, string(data))
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d migration files", migrationsLogPrefix, len(out)))
	return out, nil
}

// LoadMigrations resolves dir with MigrationSource and loads it.
func LoadMigrations(dir string) ([]string, string, error) {
	fsys, origin := MigrationSource(dir)
	files, err := LoadMigrationFiles(fsys)
	return files, origin, err
}
