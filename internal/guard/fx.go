package guard

import (
	"strings"

	"github.com/obralog/fleetmeter/internal/clock"
	"github.com/obralog/fleetmeter/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("guard",
	fx.Provide(Provide),
)

// Provide wires the guard from configuration: Redis-backed when an address
// is configured, in-memory otherwise. Single-node sites run fine without
// Redis; the in-memory guard only loses dedup across process restarts.
func Provide(cfg config.Config, clk clock.Clock, log *zap.Logger) (Guard, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Named("guard").Warn("redis addr not configured, using in-memory backfill guard")
		return NewMemoryGuard(clk, cfg.BackfillGuardTTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return NewRedisGuard(client, cfg.BackfillGuardTTL)
}
