package importer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"github.com/UnknownOlympus/mnemosyne/internal/parser"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
	"github.com/UnknownOlympus/mnemosyne/internal/repository/repotest"
	"github.com/UnknownOlympus/mnemosyne/internal/services/importer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const janeJSON = `[{
	"id": 1,
	"name": {"en": "Jane", "fa": "ژین"},
	"title": {"en": "Engineer", "fa": "مهندس"},
	"department": {"en": "IT", "fa": "فناوری"},
	"extension": "101",
	"mobile": "",
	"email": "",
	"photo": "https://api.dicebear.com/avatar.svg?options[style]=female"
}]`

// runImport imports the given document into the SQLite database at dbPath.
func runImport(t *testing.T, document, dbPath string, opts importer.Options) (importer.Report, error) {
	t.Helper()

	input := filet.TmpFile(t, "", document)
	testMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	opener := func(ctx context.Context) (repository.EmployeeStore, error) {
		return repository.OpenSQLite(ctx, dbPath, testMetrics)
	}

	imp := importer.NewImporter(discardLogger(), parser.NewEmployeeParser(input.Name(), testMetrics),
		opener, testMetrics, opts)

	return imp.Run(context.Background())
}

func openStore(t *testing.T, dbPath string) *repository.SQLiteStore {
	t.Helper()

	store, err := repository.OpenSQLite(context.Background(), dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestImportSQLite_SingleEmployee(t *testing.T) {
	defer filet.CleanUp(t)

	dbPath := repotest.NewSQLitePath(t)

	report, err := runImport(t, janeJSON, dbPath, importer.Options{Clear: true})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, report.WriteSummary(&out))
	assert.Contains(t, out.String(), "Inserted: 1 employees")
	assert.Contains(t, out.String(), "Failed: 0 employees")
	assert.Contains(t, out.String(), "Total in database: 1")

	employee, err := openStore(t, dbPath).GetEmployeeByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.Employee{
		ID:        1,
		NameEn:    "Jane",
		NameFa:    "ژین",
		TitleEn:   "Engineer",
		TitleFa:   "مهندس",
		DeptEn:    "IT",
		DeptFa:    "فناوری",
		Extension: "101",
		Photo:     "https://api.dicebear.com/avatar.svg?options[style]=female",
		Icon:      models.IconFemale,
		Visible:   true,
	}, employee)
}

func TestImportSQLite_MissingEnglishName(t *testing.T) {
	defer filet.CleanUp(t)

	dbPath := repotest.NewSQLitePath(t)

	report, err := runImport(t, `[{"id": 1, "name": {"en": "", "fa": "ژین"}, "extension": "101"}]`,
		dbPath, importer.Options{Clear: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Total)
}

func TestImportSQLite_EmptyArray(t *testing.T) {
	defer filet.CleanUp(t)

	dbPath := repotest.NewSQLitePath(t)

	report, err := runImport(t, `[]`, dbPath, importer.Options{Clear: true})
	require.NoError(t, err)

	assert.Equal(t, importer.Report{}, report)
}

func TestImportSQLite_ReimportIsIdempotent(t *testing.T) {
	defer filet.CleanUp(t)

	dbPath := repotest.NewSQLitePath(t)
	document := `[
		{"id": 1, "name": {"en": "Jane", "fa": "ژین"}, "extension": "101"},
		{"id": 2, "name": {"en": "John", "fa": "جان"}, "extension": 102},
		{"id": 2, "name": {"en": "Johnny", "fa": "جانی"}, "extension": "103"}
	]`

	for range 2 {
		report, err := runImport(t, document, dbPath, importer.Options{Clear: true})
		require.NoError(t, err)
		assert.Equal(t, 3, report.Inserted)
		assert.Equal(t, 2, report.Total)
	}

	employee, err := openStore(t, dbPath).GetEmployeeByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Johnny", employee.NameEn)
	assert.Equal(t, "103", employee.Extension)
}

func TestImportSQLite_TruncatedInput(t *testing.T) {
	defer filet.CleanUp(t)

	// the database file must not even be created
	dbPath := filepath.Join(t.TempDir(), "never.db")

	_, err := runImport(t, `[{"id": 1, "name": {"en": "Jane"`, dbPath, importer.Options{Clear: true})

	require.ErrorIs(t, err, parser.ErrInvalidJSON)
	_, statErr := os.Stat(dbPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestImportSQLite_KeepExistingRows(t *testing.T) {
	defer filet.CleanUp(t)

	dbPath := repotest.NewSQLitePath(t)

	_, err := runImport(t, janeJSON, dbPath, importer.Options{Clear: true})
	require.NoError(t, err)

	report, err := runImport(t, `[{"id": 9, "name": {"en": "Sam", "fa": "سام"}, "extension": "900"}]`,
		dbPath, importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)

	report, err = runImport(t, `[{"id": 9, "name": {"en": "Sam", "fa": "سام"}, "extension": "900"}]`,
		dbPath, importer.Options{Clear: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Cleared)
	assert.Equal(t, 1, report.Total)
}

func TestImportSQLite_DryRun(t *testing.T) {
	defer filet.CleanUp(t)

	dbPath := repotest.NewSQLitePath(t)

	report, err := runImport(t, janeJSON, dbPath, importer.Options{Clear: true, DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 0, report.Total)

	var out bytes.Buffer
	require.NoError(t, report.WriteSummary(&out))
	assert.Contains(t, out.String(), "Dry run")
}
