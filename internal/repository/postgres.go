package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps employees in a PostgreSQL table.
type PostgresStore struct {
	db      Database
	metrics *metrics.Metrics
}

func NewPostgresStore(db Database, appMetrics *metrics.Metrics) *PostgresStore {
	return &PostgresStore{db: db, metrics: appMetrics}
}

type postgresImportTx struct {
	tx      pgx.Tx
	metrics *metrics.Metrics
}

// BeginImport opens the transaction every write of an import goes through.
func (s *PostgresStore) BeginImport(ctx context.Context) (ImportTx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}

	return &postgresImportTx{tx: tx, metrics: s.metrics}, nil
}

// CountEmployees returns the number of rows in the employees table.
func (s *PostgresStore) CountEmployees(ctx context.Context) (int, error) {
	defer observe(s.metrics, "count_employees")()

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM employees`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}

	return total, nil
}

// GetEmployeeByID retrieves an employee from the database by their ID.
func (s *PostgresStore) GetEmployeeByID(ctx context.Context, identifier int64) (models.Employee, error) {
	defer observe(s.metrics, "get_employee_by_id")()

	query := `SELECT id, name_en, name_fa, COALESCE(title_en, ''), COALESCE(title_fa, ''),
		COALESCE(dept_en, ''), COALESCE(dept_fa, ''), extension, COALESCE(mobile, ''), COALESCE(email, ''),
		COALESCE(photo, ''), COALESCE(icon, 'unknown'), COALESCE(visible, 1) FROM employees WHERE id=$1`

	var (
		result  models.Employee
		icon    string
		visible int
	)

	err := s.db.QueryRow(ctx, query, identifier).Scan(
		&result.ID, &result.NameEn, &result.NameFa, &result.TitleEn, &result.TitleFa, &result.DeptEn, &result.DeptFa,
		&result.Extension, &result.Mobile, &result.Email, &result.Photo, &icon, &visible)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Employee{}, fmt.Errorf("%w: id %d", ErrEmployeeNotFound, identifier)
		}
		return models.Employee{}, fmt.Errorf("failed to get employee by id: %w", err)
	}

	result.Icon = models.Icon(icon)
	result.Visible = visible != 0

	return result, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// ClearEmployees deletes every row of the employees table.
func (t *postgresImportTx) ClearEmployees(ctx context.Context) (int64, error) {
	defer observe(t.metrics, "clear_employees")()

	tag, err := t.tx.Exec(ctx, `DELETE FROM employees`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear employees: %w", err)
	}

	return tag.RowsAffected(), nil
}

// UpsertEmployee writes the employee, overwriting every column of an existing row with the same id.
func (t *postgresImportTx) UpsertEmployee(ctx context.Context, employee models.Employee) error {
	defer observe(t.metrics, "upsert_employee")()

	query := `
		INSERT INTO employees (id, name_en, name_fa, title_en, title_fa, dept_en, dept_fa,
			extension, mobile, email, photo, icon, visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name_en = EXCLUDED.name_en, name_fa = EXCLUDED.name_fa,
			title_en = EXCLUDED.title_en, title_fa = EXCLUDED.title_fa,
			dept_en = EXCLUDED.dept_en, dept_fa = EXCLUDED.dept_fa,
			extension = EXCLUDED.extension, mobile = EXCLUDED.mobile, email = EXCLUDED.email,
			photo = EXCLUDED.photo, icon = EXCLUDED.icon, visible = EXCLUDED.visible;
	`

	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("%w: failed to create savepoint: %w", ErrTxAborted, err)
	}

	_, err := t.tx.Exec(ctx, query,
		employee.ID, employee.NameEn, employee.NameFa, employee.TitleEn, employee.TitleFa,
		employee.DeptEn, employee.DeptFa, employee.Extension, employee.Mobile, employee.Email,
		employee.Photo, string(employee.Icon), visibleFlag(employee.Visible),
	)
	if err != nil {
		if _, rbErr := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return fmt.Errorf("%w: failed to roll back employee %d: %w", ErrTxAborted, employee.ID, rbErr)
		}
		// ROLLBACK TO leaves the savepoint on the stack
		if _, relErr := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); relErr != nil {
			return fmt.Errorf("%w: failed to release savepoint: %w", ErrTxAborted, relErr)
		}
		return fmt.Errorf("failed to upsert employee %d: %w", employee.ID, err)
	}

	if _, err = t.tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("%w: failed to release savepoint: %w", ErrTxAborted, err)
	}

	return nil
}

func (t *postgresImportTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func (t *postgresImportTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back import: %w", err)
	}
	return nil
}
