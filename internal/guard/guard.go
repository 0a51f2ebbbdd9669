// Package guard implements the once-per-day marker for the automatic
// backfill. The marker is an atomic check-and-set: whichever process sets
// the day's key first runs the batch, everyone else skips. A lost race is
// harmless because the backfill is idempotent, so losing the key early
// (Redis restart, TTL expiry) only costs redundant work.
package guard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "autofix:"

// Key builds the day's guard key, e.g. "autofix:2026-01-11".
func Key(day time.Time) string {
	return keyPrefix + day.Format("2006-01-02")
}

// Guard marks a calendar day's automatic backfill as taken.
type Guard interface {
	// Acquire returns true when the caller won the day: the key did not
	// exist and has been set atomically. False means another run already
	// claimed the day.
	Acquire(ctx context.Context, day time.Time) (bool, error)
}

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard builds the production guard. The TTL keeps stale keys from
// blocking future days forever; it must outlive the day it marks.
func NewRedisGuard(client *redis.Client, ttl time.Duration) (Guard, error) {
	if client == nil {
		return nil, errors.New("guard redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("guard ttl must be positive")
	}
	return &redisGuard{client: client, ttl: ttl}, nil
}

func (g *redisGuard) Acquire(ctx context.Context, day time.Time) (bool, error) {
	token := uuid.NewString()
	return g.client.SetNX(ctx, Key(day), token, g.ttl).Result()
}
