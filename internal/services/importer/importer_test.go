package importer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"github.com/UnknownOlympus/mnemosyne/internal/parser"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
	"github.com/UnknownOlympus/mnemosyne/internal/services/importer"
	mocks "github.com/UnknownOlympus/mnemosyne/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v int64) *int64 {
	return &v
}

func validRecord(identifier int64) parser.ParsedRecord {
	return parser.ParsedRecord{
		Index: int(identifier),
		Record: models.EmployeeRecord{
			ID:        ptr(identifier),
			Name:      models.LocalizedString{En: "Jane", Fa: "ژین"},
			Extension: "101",
			Photo:     "https://api.dicebear.com/avatar.svg?options[style]=female",
		},
	}
}

func openerFor(store repository.EmployeeStore) importer.StoreOpener {
	return func(context.Context) (repository.EmployeeStore, error) {
		return store, nil
	}
}

type fixture struct {
	parser  *mocks.EmployeeParserIface
	store   *mocks.EmployeeStore
	tx      *mocks.ImportTx
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return &fixture{
		parser:  mocks.NewEmployeeParserIface(t),
		store:   mocks.NewEmployeeStore(t),
		tx:      mocks.NewImportTx(t),
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	}
}

func (f *fixture) importer(opts importer.Options) *importer.Importer {
	return importer.NewImporter(discardLogger(), f.parser, openerFor(f.store), f.metrics, opts)
}

func TestRun_ParseErrorDoesNotOpenStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mockParser := mocks.NewEmployeeParserIface(t)
	mockParser.On("ParseEmployees", ctx).Return(nil, parser.ErrInvalidJSON)

	testMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	opener := func(context.Context) (repository.EmployeeStore, error) {
		t.Fatal("store must not be opened when the input cannot be parsed")
		return nil, nil
	}

	_, err := importer.NewImporter(discardLogger(), mockParser, opener, testMetrics, importer.Options{}).Run(ctx)

	require.ErrorIs(t, err, parser.ErrInvalidJSON)
	assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.Runs.WithLabelValues("failure")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(testMetrics.Runs.WithLabelValues("success")), 0)
}

func TestRun_OpenStoreError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mockParser := mocks.NewEmployeeParserIface(t)
	mockParser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{validRecord(1)}, nil)

	opener := func(context.Context) (repository.EmployeeStore, error) {
		return nil, assert.AnError
	}

	_, err := importer.NewImporter(discardLogger(), mockParser, opener,
		metrics.NewMetrics(prometheus.NewRegistry()), importer.Options{}).Run(ctx)

	require.ErrorIs(t, err, importer.ErrStore)
	require.ErrorIs(t, err, assert.AnError)
}

func TestRun_BeginImportError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.parser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{validRecord(1)}, nil)
	f.store.On("BeginImport", ctx).Return(nil, assert.AnError)
	f.store.On("Close").Return(nil)

	_, err := f.importer(importer.Options{Clear: true}).Run(ctx)

	require.ErrorIs(t, err, importer.ErrStore)
	f.store.AssertNotCalled(t, "CountEmployees", mock.Anything)
}

func TestRun_ClearErrorRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.parser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{validRecord(1)}, nil)
	f.store.On("BeginImport", ctx).Return(f.tx, nil)
	f.store.On("Close").Return(nil)
	f.tx.On("ClearEmployees", ctx).Return(int64(0), assert.AnError)
	f.tx.On("Rollback", mock.Anything).Return(nil)

	_, err := f.importer(importer.Options{Clear: true}).Run(ctx)

	require.ErrorIs(t, err, importer.ErrStore)
	f.tx.AssertNotCalled(t, "UpsertEmployee", mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestRun_SkipsInvalidAndRejectedRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	missingName := validRecord(2)
	missingName.Record.Name.En = ""
	malformed := parser.ParsedRecord{Index: 3, Record: models.EmployeeRecord{ID: ptr(3)}, Err: errors.New("bad shape")}
	rejected := validRecord(4)

	f.parser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{
		validRecord(1), missingName, malformed, rejected,
	}, nil)
	f.store.On("BeginImport", ctx).Return(f.tx, nil)
	f.store.On("CountEmployees", ctx).Return(1, nil)
	f.store.On("Close").Return(nil)
	f.tx.On("ClearEmployees", ctx).Return(int64(7), nil)
	f.tx.On("UpsertEmployee", ctx, importer.ToEmployee(validRecord(1).Record)).Return(nil)
	f.tx.On("UpsertEmployee", ctx, importer.ToEmployee(rejected.Record)).Return(assert.AnError)
	f.tx.On("Commit", ctx).Return(nil)

	report, err := f.importer(importer.Options{Clear: true, ProgressEvery: 1}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Loaded)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, int64(7), report.Cleared)
	assert.Equal(t, 1, report.Total)
	require.Len(t, report.Failures, 3)
	assert.Equal(t, []importer.Reason{importer.ReasonMissingNameEn}, report.Failures[0].Reasons)
	assert.Equal(t, []importer.Reason{importer.ReasonMalformedRecord}, report.Failures[1].Reasons)
	assert.Equal(t, []importer.Reason{importer.ReasonStoreError}, report.Failures[2].Reasons)
	require.ErrorIs(t, report.Failures[2].Err, assert.AnError)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Records.WithLabelValues("inserted")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.Records.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FailureReasons.WithLabelValues("store_error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Runs.WithLabelValues("success")), 0)
	f.tx.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestRun_NoClearLeavesTableAlone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.parser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{validRecord(1)}, nil)
	f.store.On("BeginImport", ctx).Return(f.tx, nil)
	f.store.On("CountEmployees", ctx).Return(5, nil)
	f.store.On("Close").Return(nil)
	f.tx.On("UpsertEmployee", ctx, mock.AnythingOfType("models.Employee")).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	report, err := f.importer(importer.Options{}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	f.tx.AssertNotCalled(t, "ClearEmployees", mock.Anything)
}

func TestRun_AbortedTransactionIsFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.parser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{validRecord(1), validRecord(2)}, nil)
	f.store.On("BeginImport", ctx).Return(f.tx, nil)
	f.store.On("Close").Return(nil)
	f.tx.On("UpsertEmployee", ctx, importer.ToEmployee(validRecord(1).Record)).
		Return(errors.Join(repository.ErrTxAborted, assert.AnError)).Once()
	f.tx.On("Rollback", mock.Anything).Return(nil)

	_, err := f.importer(importer.Options{}).Run(ctx)

	require.ErrorIs(t, err, importer.ErrStore)
	require.ErrorIs(t, err, repository.ErrTxAborted)
	f.tx.AssertNumberOfCalls(t, "UpsertEmployee", 1)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestRun_CommitError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.parser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{validRecord(1)}, nil)
	f.store.On("BeginImport", ctx).Return(f.tx, nil)
	f.store.On("Close").Return(nil)
	f.tx.On("UpsertEmployee", ctx, mock.AnythingOfType("models.Employee")).Return(nil)
	f.tx.On("Commit", ctx).Return(assert.AnError)

	_, err := f.importer(importer.Options{}).Run(ctx)

	require.ErrorIs(t, err, importer.ErrStore)
	f.store.AssertNotCalled(t, "CountEmployees", mock.Anything)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Runs.WithLabelValues("failure")), 0)
}

func TestRun_DryRunRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.parser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{validRecord(1)}, nil)
	f.store.On("BeginImport", ctx).Return(f.tx, nil)
	f.store.On("CountEmployees", ctx).Return(0, nil)
	f.store.On("Close").Return(nil)
	f.tx.On("ClearEmployees", ctx).Return(int64(0), nil)
	f.tx.On("UpsertEmployee", ctx, mock.AnythingOfType("models.Employee")).Return(nil)
	f.tx.On("Rollback", ctx).Return(nil).Once()

	report, err := f.importer(importer.Options{Clear: true, DryRun: true}).Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Inserted)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.LastSuccessfulRun), 0)
}

func TestRun_CancelledContextRollsBack(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)
	f.parser.On("ParseEmployees", ctx).Return([]parser.ParsedRecord{validRecord(1)}, nil)
	f.store.On("BeginImport", ctx).Return(f.tx, nil).Run(func(mock.Arguments) { cancel() })
	f.store.On("Close").Return(nil)
	f.tx.On("Rollback", mock.Anything).Return(nil)

	_, err := f.importer(importer.Options{}).Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	f.tx.AssertNotCalled(t, "UpsertEmployee", mock.Anything, mock.Anything)
}
