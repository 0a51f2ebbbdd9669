package scheduler

import (
	"time"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	// RunInterval is how often the loop wakes up. The daily backfill is
	// guarded per calendar day, so a short interval only costs cheap
	// guard checks.
	RunInterval time.Duration
	BatchSize   int
	JobTimeout  time.Duration
	// StaleThreshold is how long a job row may stay running before the
	// sweep marks it abandoned.
	StaleThreshold time.Duration
	// EnabledJobs limits which jobs run; empty enables all of them.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    15 * time.Minute,
		BatchSize:      500,
		JobTimeout:     10 * time.Minute,
		StaleThreshold: time.Hour,
	}
}

func ProvideConfig() Config {
	return DefaultConfig()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = defaults.StaleThreshold
	}
	return c
}
