package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/helixir/research-catalog/internal/config"
)

// runTimeout bounds a single scheduled run.
const runTimeout = 10 * time.Minute

// Runner is the part of Reconciler the scheduler drives.
type Runner interface {
	Run(ctx context.Context, apply bool) (*Report, error)
}

// Scheduler runs the reconciler on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	apply  bool
	logger zerolog.Logger
}

// NewScheduler registers runner under cfg.Schedule. Runs report only unless
// cfg.AutoApply is set. Overlapping runs are skipped.
func NewScheduler(cfg config.ReconcileConfig, runner Runner, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		runner: runner,
		apply:  cfg.AutoApply,
		logger: logger.With().Str("component", "reconcile_scheduler").Logger(),
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(cfg.Schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info().Bool("auto_apply", s.apply).Msg("reconcile scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("reconcile run still in progress at shutdown")
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	s.logger.Info().Msg("running scheduled reconcile")
	report, err := s.runner.Run(ctx, s.apply)
	if errors.Is(err, ErrLocked) {
		s.logger.Info().Msg("reconcile already running elsewhere; skipping")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled reconcile failed")
		return
	}
	if !report.Clean() && !s.apply {
		s.logger.Warn().
			Int("author_drift", len(report.Authors)).
			Int("journal_drift", len(report.Journals)).
			Int("orphan_links", len(report.OrphanLinks)).
			Msg("identifier drift detected; run the reconcile command with -apply to repair")
	}
}
