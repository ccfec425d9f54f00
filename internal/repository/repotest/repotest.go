// Package repotest provides migrated throwaway databases for tests.
package repotest

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/UnknownOlympus/mnemosyne/internal/config"
	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
	"github.com/stretchr/testify/require"
)

// MigrationsDir returns the absolute path of the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// NewSQLitePath creates a migrated SQLite database file in a temporary directory.
func NewSQLitePath(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "employees.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, repository.Migrate(db, config.DriverSQLite, MigrationsDir()))

	return path
}

// NewSQLiteStore opens a store on a fresh migrated database and closes it when the test ends.
func NewSQLiteStore(t *testing.T, appMetrics *metrics.Metrics) (*repository.SQLiteStore, string) {
	t.Helper()

	path := NewSQLitePath(t)

	store, err := repository.OpenSQLite(context.Background(), path, appMetrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, path
}
