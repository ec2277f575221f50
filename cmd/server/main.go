// Package main provides the entry point for the research catalog HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/research-catalog/internal/archive"
	"github.com/helixir/research-catalog/internal/config"
	"github.com/helixir/research-catalog/internal/csvimport"
	"github.com/helixir/research-catalog/internal/database"
	"github.com/helixir/research-catalog/internal/dedup"
	"github.com/helixir/research-catalog/internal/events"
	"github.com/helixir/research-catalog/internal/observability"
	"github.com/helixir/research-catalog/internal/reconcile"
	"github.com/helixir/research-catalog/internal/repository"
	httpserver "github.com/helixir/research-catalog/internal/server/http"
	"github.com/helixir/research-catalog/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("research-catalog server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		var migrator *database.Migrator
		if cfg.Database.MigrationPath != "" {
			migrator, err = database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		} else {
			migrator, err = database.NewEmbeddedMigrator(db, migrations.FS, logger)
		}
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	publisher := events.New(cfg.Events, metrics, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Create repositories and services.
	store := repository.NewStore(db)
	loader := repository.ConsistentLoader{Runner: db}

	flusher := csvimport.NewFlusher(csvimport.NewRepositories(store), csvimport.FlusherConfig{
		ChunkSize:       cfg.Import.ArticleChunkSize,
		Workers:         cfg.Import.DependentWorkers,
		WritesPerSecond: cfg.Import.WritesPerSecond,
	}, logger)
	importer := csvimport.NewService(loader, flusher, publisher, metrics, logger)

	checkerCfg := dedup.DefaultCheckerConfig()
	if cfg.Reconcile.DuplicateThreshold > 0 {
		checkerCfg.AuthorThreshold = cfg.Reconcile.DuplicateThreshold
	}
	reconciler := reconcile.New(reconcile.Config{
		Loader:    loader,
		Orphans:   repository.NewPgDriftRepository(db),
		Tx:        db,
		Checker:   dedup.NewChecker(checkerCfg),
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger,
	})

	deps := httpserver.Dependencies{
		Resources:  httpserver.StoreResources(store),
		Health:     db,
		Loader:     loader,
		Importer:   importer,
		Writer:     repository.NewArticleWriter(db),
		Reconciler: reconciler,
		Publisher:  publisher,
		Metrics:    metrics,
	}

	if cfg.Archive.Enabled {
		client, err := archive.NewS3Client(ctx, cfg.Archive)
		if err != nil {
			return fmt.Errorf("create archive client: %w", err)
		}
		deps.Archiver = archive.New(client, cfg.Archive, metrics, logger)
		logger.Info().
			Str("bucket", cfg.Archive.Bucket).
			Str("prefix", cfg.Archive.Prefix).
			Msg("export archiving enabled")
	}

	// Schedule drift checks.
	var scheduler *reconcile.Scheduler
	if cfg.Reconcile.Enabled {
		scheduler, err = reconcile.NewScheduler(cfg.Reconcile, reconcile.Exclusive(reconciler, db), logger)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	httpCfg := httpserver.Config{
		Address:          cfg.Server.HTTPAddress(),
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      2 * time.Minute,
		MaxUploadBytes:   cfg.Import.MaxUploadBytes,
		ImportsPerMinute: cfg.Import.RequestsPerMinute,
	}
	httpSrv := httpserver.NewServer(httpCfg, deps, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Server.MetricsAddress(),
			Handler:           metricsMux,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: 15 * time.Second,
			WriteTimeout:      cfg.Server.ReadTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("research-catalog is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down research-catalog")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	logger.Info().Msg("research-catalog shutdown complete")
	return nil
}
