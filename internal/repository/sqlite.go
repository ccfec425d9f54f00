package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore keeps employees in a file-backed SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string, appMetrics *metrics.Metrics) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database %s: %w", path, err)
	}

	// a single connection keeps the busy timeout pragma and the import transaction on the same handle
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure SQLite database %s: %w", path, err)
	}

	return NewSQLiteStore(db, appMetrics), nil
}

func NewSQLiteStore(db *sql.DB, appMetrics *metrics.Metrics) *SQLiteStore {
	return &SQLiteStore{db: db, metrics: appMetrics}
}

type sqliteImportTx struct {
	tx      *sql.Tx
	metrics *metrics.Metrics
}

// BeginImport opens the transaction every write of an import goes through.
func (s *SQLiteStore) BeginImport(ctx context.Context) (ImportTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}

	return &sqliteImportTx{tx: tx, metrics: s.metrics}, nil
}

// CountEmployees returns the number of rows in the employees table.
func (s *SQLiteStore) CountEmployees(ctx context.Context) (int, error) {
	defer observe(s.metrics, "count_employees")()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}

	return total, nil
}

// GetEmployeeByID retrieves an employee from the database by their ID.
func (s *SQLiteStore) GetEmployeeByID(ctx context.Context, identifier int64) (models.Employee, error) {
	defer observe(s.metrics, "get_employee_by_id")()

	query := `SELECT id, name_en, name_fa, COALESCE(title_en, ''), COALESCE(title_fa, ''),
		COALESCE(dept_en, ''), COALESCE(dept_fa, ''), extension, COALESCE(mobile, ''), COALESCE(email, ''),
		COALESCE(photo, ''), COALESCE(icon, 'unknown'), COALESCE(visible, 1) FROM employees WHERE id = ?`

	var (
		result  models.Employee
		icon    string
		visible int
	)

	err := s.db.QueryRowContext(ctx, query, identifier).Scan(
		&result.ID, &result.NameEn, &result.NameFa, &result.TitleEn, &result.TitleFa, &result.DeptEn, &result.DeptFa,
		&result.Extension, &result.Mobile, &result.Email, &result.Photo, &icon, &visible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Employee{}, fmt.Errorf("%w: id %d", ErrEmployeeNotFound, identifier)
		}
		return models.Employee{}, fmt.Errorf("failed to get employee by id: %w", err)
	}

	result.Icon = models.Icon(icon)
	result.Visible = visible != 0

	return result, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}

// ClearEmployees deletes every row of the employees table.
func (t *sqliteImportTx) ClearEmployees(ctx context.Context) (int64, error) {
	defer observe(t.metrics, "clear_employees")()

	res, err := t.tx.ExecContext(ctx, `DELETE FROM employees`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear employees: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted rows: %w", err)
	}

	return deleted, nil
}

// UpsertEmployee replaces the row with the same id, or inserts a new one.
func (t *sqliteImportTx) UpsertEmployee(ctx context.Context, employee models.Employee) error {
	defer observe(t.metrics, "upsert_employee")()

	query := `
		INSERT OR REPLACE INTO employees
		(id, name_en, name_fa, title_en, title_fa, dept_en, dept_fa,
		 extension, mobile, email, photo, icon, visible)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("%w: failed to create savepoint: %w", ErrTxAborted, err)
	}

	_, err := t.tx.ExecContext(ctx, query,
		employee.ID, employee.NameEn, employee.NameFa, employee.TitleEn, employee.TitleFa,
		employee.DeptEn, employee.DeptFa, employee.Extension, employee.Mobile, employee.Email,
		employee.Photo, string(employee.Icon), visibleFlag(employee.Visible),
	)
	if err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return fmt.Errorf("%w: failed to roll back employee %d: %w", ErrTxAborted, employee.ID, rbErr)
		}
		// ROLLBACK TO leaves the savepoint on the stack
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); relErr != nil {
			return fmt.Errorf("%w: failed to release savepoint: %w", ErrTxAborted, relErr)
		}
		return fmt.Errorf("failed to upsert employee %d: %w", employee.ID, err)
	}

	if _, err = t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("%w: failed to release savepoint: %w", ErrTxAborted, err)
	}

	return nil
}

func (t *sqliteImportTx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func (t *sqliteImportTx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back import: %w", err)
	}
	return nil
}

