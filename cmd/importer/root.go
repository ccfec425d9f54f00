package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/UnknownOlympus/mnemosyne/internal/config"
	"github.com/UnknownOlympus/mnemosyne/internal/lib/logger/sl"
	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/parser"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
	"github.com/UnknownOlympus/mnemosyne/internal/services/importer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	input      string
	dbPath     string
	driver     string
	noClear    bool
	dryRun     bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "importer",
		Short:         "Import the employee directory JSON into the employees table",
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, stdout, setupLogger(cfg.Env, stdout))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default: $CONFIG_PATH)")
	flags.StringVar(&opts.input, "input", "", "Employees JSON file (default: public/employees.json)")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite database file (default: backend/employees.db)")
	flags.StringVar(&opts.driver, "driver", "", "Store driver: sqlite or postgres")
	cmd.Flags().BoolVar(&opts.noClear, "no-clear", false, "Keep existing rows instead of clearing the table first")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Roll the import back instead of committing it")

	// check prints JSON on stdout, so its log lines go to stderr
	cmd.SetErr(stderr)

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})

	cmd.AddCommand(newCheckCmd(&opts, stdout))

	return cmd
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return withCode(exitUsage, validate(cmd, args))
	}
}

// loadConfig reads the configuration and applies the flags that were set explicitly.
func loadConfig(cmd *cobra.Command, opts rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = opts.input
	}
	if flags.Changed("db") {
		cfg.Store.Path = opts.dbPath
	}
	if flags.Changed("driver") {
		cfg.Store.Driver = opts.driver
	}
	if flags.Changed("no-clear") {
		cfg.Import.Clear = !opts.noClear
	}
	if flags.Changed("dry-run") {
		cfg.Import.DryRun = opts.dryRun
	}

	if err = cfg.Validate(); err != nil {
		return nil, withCode(exitUsage, err)
	}

	return cfg, nil
}

func runImport(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(reg)

	opener := func(ctx context.Context) (repository.EmployeeStore, error) {
		return repository.Open(ctx, cfg.Store, appMetrics)
	}

	imp := importer.NewImporter(
		logger,
		parser.NewEmployeeParser(cfg.Input, appMetrics),
		opener,
		appMetrics,
		importer.Options{
			Clear:         cfg.Import.Clear,
			DryRun:        cfg.Import.DryRun,
			ProgressEvery: cfg.Import.ProgressEvery,
		},
	)

	logger.InfoContext(ctx, "Starting import", "input", cfg.Input, "driver", cfg.Store.Driver)
	report, runErr := imp.Run(ctx)

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(reg, cfg.Metrics.Textfile); err != nil {
			logger.WarnContext(ctx, "Failed to write metrics", sl.Err(err))
		}
	}

	if runErr != nil {
		logger.ErrorContext(ctx, "Import failed", sl.Err(runErr))
		switch {
		case errors.Is(runErr, parser.ErrInputNotFound), errors.Is(runErr, parser.ErrInvalidJSON):
			return withCode(exitFatal, fmt.Errorf("import failed: cannot read input: %w", runErr))
		default:
			return withCode(exitFatal, fmt.Errorf("import failed: %w", runErr))
		}
	}

	return report.WriteSummary(stdout)
}
