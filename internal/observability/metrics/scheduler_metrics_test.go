package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "fleetmeter",
		Environment: "test",
	})

	metrics.AddBatchProcessed("daily_backfill", "readings_fixed", 3)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("daily_backfill", "readings_fixed"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestAddBackfillOutcomeUsesPrebuiltCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "fleetmeter",
		Environment: "test",
	})

	metrics.AddBackfillOutcome(BackfillOutcomeFixed, 2)
	metrics.AddBackfillOutcome(BackfillOutcomeSkippedNoHistory, 1)
	metrics.AddBackfillOutcome(BackfillOutcomeFixed, 0)

	if got := testutil.ToFloat64(metrics.backfillOutcomes.WithLabelValues(BackfillOutcomeFixed)); got != 2 {
		t.Fatalf("expected fixed count 2, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.backfillOutcomes.WithLabelValues(BackfillOutcomeSkippedNoHistory)); got != 1 {
		t.Fatalf("expected skipped count 1, got %v", got)
	}
}

func TestIncBackfillStageError(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "fleetmeter",
		Environment: "test",
	})

	metrics.IncBackfillStageError(BackfillStageCorrect, context.DeadlineExceeded)

	got := testutil.ToFloat64(metrics.stageErrors.WithLabelValues(BackfillStageCorrect, SchedulerErrorTypeDeadlineExceeded))
	if got != 1 {
		t.Fatalf("expected stage error count 1, got %v", got)
	}
}
