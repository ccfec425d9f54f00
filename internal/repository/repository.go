package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnknownOlympus/mnemosyne/internal/config"
	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrTxAborted means a failed record could not be rolled back to its savepoint,
	// so the surrounding import transaction can no longer be used.
	ErrTxAborted = errors.New("import transaction aborted")
)

// savepoint guards a single upsert inside the import transaction.
const savepoint = "employee_upsert"

// EmployeeStore is the destination table of an import.
type EmployeeStore interface {
	BeginImport(ctx context.Context) (ImportTx, error)
	CountEmployees(ctx context.Context) (int, error)
	GetEmployeeByID(ctx context.Context, identifier int64) (models.Employee, error)
	Ping(ctx context.Context) error
	Close() error
}

// ImportTx is the single transaction an import writes through.
// A failed UpsertEmployee leaves the transaction usable unless the error wraps ErrTxAborted.
type ImportTx interface {
	ClearEmployees(ctx context.Context) (int64, error)
	UpsertEmployee(ctx context.Context, employee models.Employee) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Open connects to the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, appMetrics *metrics.Metrics) (EmployeeStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path, appMetrics)
	case config.DriverPostgres:
		pool, err := NewDatabase(ctx,
			cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Dbname)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool, appMetrics), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func visibleFlag(visible bool) int {
	if visible {
		return 1
	}
	return 0
}

func observe(appMetrics *metrics.Metrics, queryType string) func() {
	startTime := time.Now()
	return func() {
		if appMetrics == nil {
			return
		}
		duration := time.Since(startTime).Seconds()
		appMetrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration)
	}
}
