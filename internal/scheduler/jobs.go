package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/obralog/fleetmeter/internal/observability/metrics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusAbandoned = "abandoned"
)

// JobRow is the durable record of one scheduler job execution.
type JobRow struct {
	ID         snowflake.ID       `gorm:"primaryKey"`
	Name       string             `gorm:"type:text;not null"`
	RunID      string             `gorm:"type:text;not null"`
	Status     string             `gorm:"type:text;not null"`
	StartedAt  time.Time          `gorm:"not null"`
	FinishedAt *time.Time         ``
	Result     datatypes.JSONMap  `gorm:"type:json"`
	CreatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (JobRow) TableName() string { return "jobs" }

func (s *Scheduler) beginJobRow(ctx context.Context, name, runID string) (snowflake.ID, error) {
	id := s.genID.Generate()
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO jobs (id, name, run_id, status, started_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, runID, JobStatusRunning, now, now, now,
	).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Scheduler) finishJobRow(ctx context.Context, id snowflake.ID, status string, result datatypes.JSONMap) error {
	now := s.clock.Now()
	return s.db.WithContext(ctx).Exec(
		`UPDATE jobs SET status = ?, finished_at = ?, result = ?, updated_at = ?
		 WHERE id = ?`,
		status, now, result, now, id,
	).Error
}

// fetchStaleJobs claims running job rows older than the threshold so the
// sweep can mark them abandoned. SKIP LOCKED keeps concurrent sweepers
// from fighting over the same rows.
func (s *Scheduler) fetchStaleJobs(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]JobRow, error) {
	var rows []JobRow
	schedMetrics := obsmetrics.Scheduler()
	lockStart := time.Now()
	err := tx.WithContext(ctx).Raw(
		`SELECT id, name, run_id, status, started_at, finished_at, result, created_at, updated_at
		 FROM jobs
		 WHERE status = ? AND started_at < ?
		 ORDER BY started_at ASC, id ASC
		 FOR UPDATE SKIP LOCKED
		 LIMIT ?`,
		JobStatusRunning,
		cutoff,
		limit,
	).Scan(&rows).Error
	schedMetrics.ObserveDBLockWait(obsmetrics.LockResourceJobsForWork, time.Since(lockStart))
	if err != nil {
		return nil, err
	}
	return rows, nil
}
