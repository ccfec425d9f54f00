package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/mnemosyne/internal/config"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
	"github.com/jackc/pgx/v5/stdlib"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default: $CONFIG_PATH)")
	dir := flag.String("dir", "migrations", "Directory holding the migration files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	dtb, closeDB, err := openDB(context.Background(), cfg.Store)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer closeDB()

	if migrationErr := repository.Migrate(dtb, cfg.Store.Driver, *dir); migrationErr != nil {
		closeDB()
		log.Fatal(migrationErr)
	}

	log.Println("✅ Migrations applied successfully")
}

// openDB returns a database/sql handle for goose on the configured store.
func openDB(ctx context.Context, cfg config.StoreConfig) (*sql.DB, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		dbpool, err := repository.NewDatabase(ctx,
			cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Dbname)
		if err != nil {
			return nil, nil, err
		}
		return stdlib.OpenDBFromPool(dbpool), dbpool.Close, nil
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dtb, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite database %s: %w", cfg.Path, err)
		}
		return dtb, func() { _ = dtb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
