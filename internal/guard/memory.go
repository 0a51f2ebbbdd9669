package guard

import (
	"context"
	"sync"
	"time"

	"github.com/obralog/fleetmeter/internal/clock"
)

type memoryGuard struct {
	mu    sync.Mutex
	clock clock.Clock
	ttl   time.Duration
	taken map[string]time.Time
}

// NewMemoryGuard serves tests and single-node deployments without Redis.
func NewMemoryGuard(clk clock.Clock, ttl time.Duration) Guard {
	return &memoryGuard{
		clock: clk,
		ttl:   ttl,
		taken: make(map[string]time.Time),
	}
}

func (g *memoryGuard) Acquire(ctx context.Context, day time.Time) (bool, error) {
	_ = ctx
	g.mu.Lock()
	defer g.mu.Unlock()

	key := Key(day)
	now := g.clock.Now()
	if expiry, ok := g.taken[key]; ok && now.Before(expiry) {
		return false, nil
	}
	g.taken[key] = now.Add(g.ttl)
	return true, nil
}
