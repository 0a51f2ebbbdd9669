// Package scheduler runs the periodic site jobs: the guarded daily
// backfill and the stale job-row sweep. The loop wakes often but the
// guard makes the backfill itself run at most once per calendar day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	backfilldomain "github.com/obralog/fleetmeter/internal/backfill/domain"
	"github.com/obralog/fleetmeter/internal/clock"
	"github.com/obralog/fleetmeter/internal/guard"
	obsmetrics "github.com/obralog/fleetmeter/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler dependencies not configured")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Guard    guard.Guard
	Backfill backfilldomain.Service
	Config   Config `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	guard    guard.Guard
	backfill backfilldomain.Service
	cfg      Config
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	if p.Guard == nil || p.Backfill == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler"),
		genID:    p.GenID,
		clock:    p.Clock,
		guard:    p.Guard,
		backfill: p.Backfill,
		cfg:      p.Config.withDefaults(),
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"daily_backfill", s.isJobEnabled("daily_backfill"), func(ctx context.Context) error {
			return s.runJob(ctx, "daily_backfill", s.cfg.BatchSize, s.cfg.JobTimeout, s.DailyBackfillJob)
		}},
		{"stale_job_sweep", s.isJobEnabled("stale_job_sweep"), func(ctx context.Context) error {
			return s.runJob(ctx, "stale_job_sweep", s.cfg.BatchSize, 30*time.Second, s.StaleJobSweepJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DailyBackfillJob runs the corrector once per calendar day. The guard is
// checked-and-set atomically, so overlapping schedulers on different
// nodes race for the key and every loser skips quietly.
func (s *Scheduler) DailyBackfillJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	schedMetrics := obsmetrics.Scheduler()

	day := s.clock.Now()
	won, err := s.guard.Acquire(ctx, day)
	if err != nil {
		schedMetrics.IncBackfillStageError(obsmetrics.BackfillStageGuard, err)
		s.logSchedulerError(ctx, run, "backfill guard check failed", "daily_backfill", err)
		return err
	}
	if !won {
		schedMetrics.IncBatchDeferred("daily_backfill", obsmetrics.SchedulerBatchDeferredReasonGuardHeld)
		s.logger(ctx).Debug("daily backfill already ran today",
			zap.String("guard_key", guard.Key(day)),
		)
		return nil
	}

	rowID, err := s.beginJobRow(ctx, "daily_backfill", run.runID)
	if err != nil {
		s.logSchedulerError(ctx, run, "job row insert failed", "daily_backfill", err)
		return err
	}

	report, err := s.backfill.Run(ctx)
	if err != nil {
		schedMetrics.IncBackfillStageError(obsmetrics.BackfillStageCorrect, err)
		s.logSchedulerError(ctx, run, "backfill run failed", "daily_backfill", err)
		if rowErr := s.finishJobRow(ctx, rowID, JobStatusFailed, datatypes.JSONMap{
			"error": err.Error(),
		}); rowErr != nil {
			s.logSchedulerError(ctx, run, "job row update failed", "daily_backfill", rowErr)
		}
		return err
	}

	schedMetrics.AddBackfillOutcome(obsmetrics.BackfillOutcomeFixed, report.Fixed)
	schedMetrics.AddBackfillOutcome(obsmetrics.BackfillOutcomeSkippedNoHistory, report.SkippedNoHistory)
	schedMetrics.AddBackfillOutcome(obsmetrics.BackfillOutcomeSkippedNoColumns, report.SkippedNoColumns)
	schedMetrics.AddBackfillOutcome(obsmetrics.BackfillOutcomeError, report.Errors)
	run.AddProcessed(report.Fixed)

	if err := s.finishJobRow(ctx, rowID, JobStatusSucceeded, datatypes.JSONMap{
		"backfill_run_id":    report.RunID,
		"fixed":              report.Fixed,
		"skipped_no_history": report.SkippedNoHistory,
		"skipped_no_columns": report.SkippedNoColumns,
		"errors":             report.Errors,
		"equipment_affected": strings.Join(report.EquipmentAffected, ","),
	}); err != nil {
		s.logSchedulerError(ctx, run, "job row update failed", "daily_backfill", err)
		return err
	}

	s.logger(ctx).Info("daily backfill completed",
		zap.String("backfill_run_id", report.RunID),
		zap.Int("fixed", report.Fixed),
		zap.Int("skipped_no_history", report.SkippedNoHistory),
		zap.Int("skipped_no_columns", report.SkippedNoColumns),
		zap.Int("errors", report.Errors),
	)
	return nil
}

// StaleJobSweepJob marks job rows abandoned when their process died
// mid-run. Abandoned rows only lose their report; the guard still blocks
// a same-day rerun, which the next day's run then covers.
func (s *Scheduler) StaleJobSweepJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	cutoff := s.clock.Now().Add(-s.cfg.StaleThreshold)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.fetchStaleJobs(ctx, tx, cutoff, s.cfg.BatchSize)
		if err != nil {
			s.logSchedulerError(ctx, run, "stale job fetch failed", "stale_job_sweep", err)
			return err
		}
		for _, row := range rows {
			now := s.clock.Now()
			if err := tx.WithContext(ctx).Exec(
				`UPDATE jobs SET status = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
				JobStatusAbandoned, now, now, row.ID,
			).Error; err != nil {
				s.logSchedulerError(ctx, run, "stale job update failed", "stale_job_sweep", err)
				return err
			}
			s.logger(ctx).Warn("abandoned stale job row",
				zap.String("stale_job", row.Name),
				zap.String("stale_run_id", row.RunID),
				zap.Time("started_at", row.StartedAt),
			)
			run.AddProcessed(1)
		}
		obsmetrics.Scheduler().AddBatchProcessed("stale_job_sweep", obsmetrics.LockResourceJobsForWork, len(rows))
		return nil
	})
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
