package repository

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/UnknownOlympus/mnemosyne/internal/config"
	"github.com/pressly/goose"
)

// goose keeps the dialect in package state
var migrateMu sync.Mutex

// Migrate applies every pending migration in dir to db.
func Migrate(db *sql.DB, driver, dir string) error {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	if err = goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err = goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to apply migrations from %s: %w", dir, err)
	}

	return nil
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case config.DriverSQLite:
		return "sqlite3", nil
	case config.DriverPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("no migration dialect for driver %q", driver)
	}
}
