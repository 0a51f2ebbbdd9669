package guard

import (
	"context"
	"testing"
	"time"

	"github.com/obralog/fleetmeter/internal/clock"
)

func TestKeyFormatsDay(t *testing.T) {
	day := time.Date(2026, time.January, 11, 14, 30, 0, 0, time.UTC)
	if got := Key(day); got != "autofix:2026-01-11" {
		t.Fatalf("expected autofix:2026-01-11, got %s", got)
	}
}

func TestMemoryGuardAcquiresOncePerDay(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, time.January, 11, 8, 0, 0, 0, time.UTC))
	g := NewMemoryGuard(fake, 48*time.Hour)
	ctx := context.Background()
	day := fake.Now()

	ok, err := g.Acquire(ctx, day)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to win the day")
	}

	ok, err = g.Acquire(ctx, day)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire on the same day to lose")
	}
}

func TestMemoryGuardDistinctDaysAreIndependent(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, time.January, 11, 8, 0, 0, 0, time.UTC))
	g := NewMemoryGuard(fake, 48*time.Hour)
	ctx := context.Background()

	if ok, _ := g.Acquire(ctx, fake.Now()); !ok {
		t.Fatal("expected to win day one")
	}
	fake.Advance(24 * time.Hour)
	if ok, _ := g.Acquire(ctx, fake.Now()); !ok {
		t.Fatal("expected to win day two")
	}
}

func TestMemoryGuardReopensAfterTTL(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, time.January, 11, 8, 0, 0, 0, time.UTC))
	g := NewMemoryGuard(fake, time.Hour)
	ctx := context.Background()
	day := fake.Now()

	if ok, _ := g.Acquire(ctx, day); !ok {
		t.Fatal("expected first acquire to win")
	}
	fake.Advance(2 * time.Hour)
	if ok, _ := g.Acquire(ctx, day); !ok {
		t.Fatal("expected acquire to win again after the ttl lapsed")
	}
}
