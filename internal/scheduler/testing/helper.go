// Package testing holds helpers for exercising scheduler behavior
// without waiting on wall-clock time.
package testing

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// JobAger backdates running job rows so sweep behavior can be triggered
// immediately in tests and staging.
type JobAger struct {
	db *gorm.DB
}

func NewJobAger(db *gorm.DB) *JobAger {
	return &JobAger{db: db}
}

// AgeRunningJobs rewinds started_at on every running job row past the
// given age and returns how many rows were touched.
func (a *JobAger) AgeRunningJobs(ctx context.Context, age time.Duration) (int64, error) {
	now := time.Now().UTC()
	result := a.db.WithContext(ctx).Exec(
		`UPDATE jobs SET started_at = ?, updated_at = ? WHERE status = ?`,
		now.Add(-age),
		now,
		"running",
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
