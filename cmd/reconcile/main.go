// Package main provides a CLI tool that reports and repairs identifier drift.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/helixir/research-catalog/internal/config"
	"github.com/helixir/research-catalog/internal/database"
	"github.com/helixir/research-catalog/internal/dedup"
	"github.com/helixir/research-catalog/internal/events"
	"github.com/helixir/research-catalog/internal/observability"
	"github.com/helixir/research-catalog/internal/reconcile"
	"github.com/helixir/research-catalog/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	apply := flag.Bool("apply", false, "Repair drifted ids instead of only reporting them")
	timeout := flag.Duration("timeout", 10*time.Minute, "Abort the run after this long")
	threshold := flag.Float64("duplicate-threshold", 0, "Override the duplicate author similarity threshold")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console logging on stderr; the report goes to stdout.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "reconcile").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	publisher := events.New(cfg.Events, nil, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	checkerCfg := dedup.DefaultCheckerConfig()
	switch {
	case *threshold > 0:
		checkerCfg.AuthorThreshold = *threshold
	case cfg.Reconcile.DuplicateThreshold > 0:
		checkerCfg.AuthorThreshold = cfg.Reconcile.DuplicateThreshold
	}

	reconciler := reconcile.New(reconcile.Config{
		Loader:    repository.ConsistentLoader{Runner: db},
		Orphans:   repository.NewPgDriftRepository(db),
		Tx:        db,
		Checker:   dedup.NewChecker(checkerCfg),
		Publisher: publisher,
		Logger:    logger,
	})

	report, err := reconcile.Exclusive(reconciler, db).Run(ctx, *apply)
	if errors.Is(err, reconcile.ErrLocked) {
		return fmt.Errorf("%w; retry once it finishes", err)
	}
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return fmt.Errorf("write report: %w", encErr)
		}
	}
	if err != nil {
		return err
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d repairs failed", report.Failed, report.Fixed+report.Failed)
	}
	if !*apply && !report.Clean() {
		logger.Warn().Msg("drift found; rerun with -apply to repair")
	}
	return nil
}
