package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is the output format (json, console, pretty).
	Format string

	// Output is the output destination (stdout, stderr).
	Output string

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the time format for timestamps.
	TimeFormat string
}

// DefaultLoggingConfig returns a LoggingConfig with sensible defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a new zerolog logger based on configuration.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var output io.Writer

	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	// Configure time format
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	// Use console writer for pretty output in development
	if strings.ToLower(cfg.Format) == "console" || strings.ToLower(cfg.Format) == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: zerolog.TimeFieldFormat,
		}
	}

	// Create logger with context
	logger := zerolog.New(output).With().Timestamp()

	// Add caller information if configured
	if cfg.AddSource {
		logger = logger.Caller()
	}

	// Build the final logger
	log := logger.Logger()

	// Set log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	log = log.Level(level)

	return log
}

// parseLevel converts a string log level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// FromContext returns the logger enriched with the request and import IDs
// stored in ctx, if any.
func FromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if id := ImportIDFromContext(ctx); id != "" {
		lc = lc.Str("import_id", id)
	}
	return lc.Logger()
}

// WithImportContext adds CSV import fields to a logger.
func WithImportContext(logger zerolog.Logger, importID string, rows int) zerolog.Logger {
	return logger.With().
		Str("import_id", importID).
		Int("rows", rows).
		Logger()
}

// WithArticleContext adds article fields to a logger.
func WithArticleContext(logger zerolog.Logger, articleID, journalID string) zerolog.Logger {
	return logger.With().
		Str("article_id", articleID).
		Str("journal_id", journalID).
		Logger()
}

// WithEntityContext adds the entity kind and identifier of a catalog record.
func WithEntityContext(logger zerolog.Logger, entity, id string) zerolog.Logger {
	return logger.With().
		Str("entity", entity).
		Str("entity_id", id).
		Logger()
}

// WithReconcileContext adds reconciliation run fields to a logger.
func WithReconcileContext(logger zerolog.Logger, runID string, apply bool) zerolog.Logger {
	return logger.With().
		Str("reconcile_run_id", runID).
		Bool("apply", apply).
		Logger()
}
