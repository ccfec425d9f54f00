package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/mnemosyne/internal/lib/logger/sl"
	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/parser"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
)

// ErrStore marks failures of the destination store that abort the whole run.
var ErrStore = errors.New("store error")

// StoreOpener connects to the destination store. It is only called once the input parsed.
type StoreOpener func(ctx context.Context) (repository.EmployeeStore, error)

type Options struct {
	Clear         bool
	DryRun        bool
	ProgressEvery int
}

// Failure describes one record that was not written.
type Failure struct {
	Index    int
	RecordID *int64
	Reasons  []Reason
	Err      error
}

// Report is the outcome of a completed run.
type Report struct {
	Loaded   int
	Inserted int
	Failed   int
	Cleared  int64
	Total    int
	DryRun   bool
	Failures []Failure
}

type Importer struct {
	log     *slog.Logger
	parser  parser.EmployeeParserIface
	open    StoreOpener
	metrics *metrics.Metrics
	opts    Options
}

func NewImporter(
	log *slog.Logger,
	employeeParser parser.EmployeeParserIface,
	open StoreOpener,
	appMetrics *metrics.Metrics,
	opts Options,
) *Importer {
	return &Importer{log: log, parser: employeeParser, open: open, metrics: appMetrics, opts: opts}
}

func (imp *Importer) initLogger(opn string) *slog.Logger {
	return imp.log.With(
		slog.String("op", opn),
		slog.String("division", "importer"),
	)
}

// Run loads the input file and writes every valid record in one transaction.
// Invalid records and records the store rejects are counted in the report and do not fail the run;
// a missing or malformed input file, or a store failure outside a single record, does.
func (imp *Importer) Run(ctx context.Context) (Report, error) {
	const opn = "Importer.Run"
	log := imp.initLogger(opn)

	startTime := time.Now()
	report, err := imp.run(ctx, log)
	imp.metrics.RunDuration.Observe(time.Since(startTime).Seconds())

	if err != nil {
		imp.metrics.Runs.WithLabelValues("failure").Inc()
		return report, err
	}

	imp.metrics.Runs.WithLabelValues("success").Inc()
	if !report.DryRun {
		imp.metrics.LastSuccessfulRun.SetToCurrentTime()
	}

	return report, nil
}

func (imp *Importer) run(ctx context.Context, log *slog.Logger) (Report, error) {
	report := Report{DryRun: imp.opts.DryRun}

	log.InfoContext(ctx, "Reading employees file...")
	records, err := imp.parser.ParseEmployees(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load employees: %w", err)
	}
	report.Loaded = len(records)
	log.InfoContext(ctx, "Loaded employees from JSON", "count", len(records))

	log.InfoContext(ctx, "Connecting to store...")
	store, err := imp.open(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: failed to open store: %w", ErrStore, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.WarnContext(ctx, "Failed to close store", sl.Err(closeErr))
		}
	}()

	if err = imp.write(ctx, log, store, records, &report); err != nil {
		return report, err
	}

	report.Total, err = store.CountEmployees(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrStore, err)
	}

	return report, nil
}

func (imp *Importer) write(
	ctx context.Context,
	log *slog.Logger,
	store repository.EmployeeStore,
	records []parser.ParsedRecord,
	report *Report,
) error {
	tx, err := store.BeginImport(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			log.ErrorContext(ctx, "Failed to roll back import", sl.Err(rbErr))
		}
	}()

	if imp.opts.Clear {
		report.Cleared, err = tx.ClearEmployees(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		log.InfoContext(ctx, "Cleared existing employees", "count", report.Cleared)
	}

	for _, rec := range records {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("import interrupted: %w", err)
		}

		failure, fatalErr := imp.processRecord(ctx, log, tx, rec)
		if fatalErr != nil {
			return fmt.Errorf("%w: %w", ErrStore, fatalErr)
		}

		if failure != nil {
			report.Failed++
			report.Failures = append(report.Failures, *failure)
			imp.metrics.Records.WithLabelValues("failed").Inc()
			for _, reason := range failure.Reasons {
				imp.metrics.FailureReasons.WithLabelValues(string(reason)).Inc()
			}
			continue
		}

		report.Inserted++
		imp.metrics.Records.WithLabelValues("inserted").Inc()
		if imp.opts.ProgressEvery > 0 && report.Inserted%imp.opts.ProgressEvery == 0 {
			log.InfoContext(ctx, "Processed employees...", "count", report.Inserted)
		}
	}

	if imp.opts.DryRun {
		finished = true
		if err = tx.Rollback(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		log.InfoContext(ctx, "Dry run, changes rolled back")
		return nil
	}

	finished = true
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	return nil
}

// processRecord validates and writes one record. A non-nil Failure means the record was skipped;
// a non-nil error means the transaction is unusable and the run must stop.
func (imp *Importer) processRecord(
	ctx context.Context,
	log *slog.Logger,
	tx repository.ImportTx,
	rec parser.ParsedRecord,
) (*Failure, error) {
	if rec.Err != nil {
		log.WarnContext(ctx, "Skipping employee: malformed record",
			sl.RecordID(rec.RecordID()), "index", rec.Index, sl.Err(rec.Err))
		return &Failure{
			Index: rec.Index, RecordID: rec.RecordID(), Reasons: []Reason{ReasonMalformedRecord}, Err: rec.Err,
		}, nil
	}

	if reasons := Validate(rec.Record); len(reasons) > 0 {
		log.WarnContext(ctx, "Skipping employee: missing required fields",
			sl.RecordID(rec.RecordID()), "index", rec.Index, "reasons", reasons)
		return &Failure{Index: rec.Index, RecordID: rec.RecordID(), Reasons: reasons}, nil
	}

	if err := tx.UpsertEmployee(ctx, ToEmployee(rec.Record)); err != nil {
		if errors.Is(err, repository.ErrTxAborted) {
			return nil, err
		}
		log.ErrorContext(ctx, "Error importing employee", sl.RecordID(rec.RecordID()), sl.Err(err))
		return &Failure{
			Index: rec.Index, RecordID: rec.RecordID(), Reasons: []Reason{ReasonStoreError}, Err: err,
		}, nil
	}

	return nil, nil
}
