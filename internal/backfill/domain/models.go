// Package domain contains the backfill corrector's report types.
package domain

import (
	"context"

	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
)

// Report summarizes one corrector run. Counts are per record: a record
// with several zero columns still moves exactly one counter.
type Report struct {
	RunID             string   `json:"run_id"`
	Fixed             int      `json:"fixed"`
	SkippedNoHistory  int      `json:"skipped_no_history"`
	SkippedNoColumns  int      `json:"skipped_no_columns"`
	Errors            int      `json:"errors"`
	EquipmentAffected []string `json:"equipment_affected"`
}

type Service interface {
	// Run repairs zero-valued counters across the whole reading set.
	// Idempotent: a second run over repaired data writes nothing.
	Run(ctx context.Context) (*Report, error)
	// RunReadings is the testable core over a supplied batch.
	RunReadings(ctx context.Context, readings []readingdomain.Reading) (*Report, error)
}
