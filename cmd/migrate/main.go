// Package main provides a CLI tool that applies the catalog schema migrations.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-catalog/internal/config"
	"github.com/helixir/research-catalog/internal/database"
	"github.com/helixir/research-catalog/internal/observability"
	"github.com/helixir/research-catalog/migrations"
)

// command is one parsed migrate invocation.
type command struct {
	action  string // up, down, steps, status or force
	steps   int
	version int
	dir     string
}

var errNoAction = errors.New("no action specified")

// parseCommand reads the flags; exactly one action must be given.
func parseCommand(args []string, usage io.Writer) (command, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(usage)
	up := fs.Bool("up", false, "Apply every pending migration")
	down := fs.Bool("down", false, "Roll back every migration")
	steps := fs.Int("steps", 0, "Apply N migrations, or roll back N when negative")
	status := fs.Bool("status", false, "Print the applied schema version as JSON")
	force := fs.Int("force", -1, "Mark version V as applied and clean after a failed migration")
	dir := fs.String("path", "", "Read migrations from this directory instead of the embedded set")
	if err := fs.Parse(args); err != nil {
		return command{}, err
	}

	var chosen []command
	if *up {
		chosen = append(chosen, command{action: "up"})
	}
	if *down {
		chosen = append(chosen, command{action: "down"})
	}
	if *steps != 0 {
		chosen = append(chosen, command{action: "steps", steps: *steps})
	}
	if *status {
		chosen = append(chosen, command{action: "status"})
	}
	if *force >= 0 {
		chosen = append(chosen, command{action: "force", version: *force})
	}

	switch len(chosen) {
	case 0:
		fs.Usage()
		return command{}, fmt.Errorf("%w: use one of -up, -down, -steps N, -status, -force V", errNoAction)
	case 1:
		cmd := chosen[0]
		cmd.dir = *dir
		return cmd, nil
	default:
		return command{}, fmt.Errorf("specify only one action at a time, got %d", len(chosen))
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd, err := parseCommand(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Str("action", cmd.action).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cmd.dir == "" {
		cmd.dir = cfg.Database.MigrationPath
	}
	var migrator *database.Migrator
	if cmd.dir != "" {
		migrator, err = database.NewMigrator(db, cmd.dir, logger)
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

	if err := execute(cmd, migrator, logger); err != nil {
		return err
	}
	return writeStatus(os.Stdout, migrator)
}

func execute(cmd command, migrator *database.Migrator, logger zerolog.Logger) error {
	switch cmd.action {
	case "up":
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		logger.Warn().Msg("rolling back every migration")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "steps":
		if err := migrator.Steps(cmd.steps); err != nil {
			return fmt.Errorf("migrate %d steps: %w", cmd.steps, err)
		}
	case "force":
		if err := migrator.Force(cmd.version); err != nil {
			return fmt.Errorf("force version %d: %w", cmd.version, err)
		}
	case "status":
	default:
		return fmt.Errorf("unknown action %q", cmd.action)
	}
	return nil
}

// writeStatus prints the applied schema version so scripts can read it.
func writeStatus(w io.Writer, migrator *database.Migrator) error {
	status, err := migrator.Status()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}
