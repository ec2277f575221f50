// Package observability provides logging and metrics support for the
// research catalog service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//
// Scope a logger to the current request or import run:
//
//	logger = observability.FromContext(ctx, logger)
//	logger = observability.WithImportContext(logger, importID, len(rows))
//
// # Metrics
//
//	metrics := observability.NewMetrics("research_catalog")
//	metrics.RecordImport("success", 2.1)
//	metrics.RecordArticles("new", 12)
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - import_id: CSV import run identifier
//   - article_id, journal_id: catalog record identifiers
//   - entity, entity_id: generic record kind and identifier
//   - reconcile_run_id: identifier drift reconciliation run
//
// All components are safe for concurrent use from multiple goroutines.
package observability
