package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/UnknownOlympus/mnemosyne/internal/config"
	"github.com/UnknownOlympus/mnemosyne/internal/health"
	"github.com/UnknownOlympus/mnemosyne/internal/lib/logger/sl"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("preflight check failed")

func newCheckCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the input file exists and the store is reachable",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *opts)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cfg, stdout, setupLogger(cfg.Env, cmd.ErrOrStderr()))
		},
	}
}

func runCheck(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	var pinger health.DBPinger

	store, err := openExistingStore(ctx, cfg.Store)
	if err != nil {
		logger.WarnContext(ctx, "Failed to open store", sl.Err(err))
	} else {
		defer store.Close()
		pinger = store
	}

	healthy, err := health.NewChecker(pinger, cfg.Input, logger).WriteJSON(ctx, stdout)
	if err != nil {
		return withCode(exitFatal, err)
	}
	if !healthy {
		return withCode(exitFatal, errUnhealthy)
	}

	return nil
}

// openExistingStore opens the store without creating a missing SQLite file.
func openExistingStore(ctx context.Context, cfg config.StoreConfig) (repository.EmployeeStore, error) {
	if cfg.Driver == config.DriverSQLite {
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, fmt.Errorf("database file %s: %w", cfg.Path, err)
		}
	}

	return repository.Open(ctx, cfg, nil)
}
