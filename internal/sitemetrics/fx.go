package sitemetrics

import (
	"context"
	"runtime"
	"time"

	"github.com/obralog/fleetmeter/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pushInterval = 30 * time.Minute

var Module = fx.Module("site.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Provide(func(cfg config.Config, registry *prometheus.Registry, pusher Pusher, logger *zap.Logger) *SiteMetrics {
		if pusher == nil {
			return nil
		}
		return New(registry, pusher, cfg.Site.SiteID, cfg.AppVersion, logger)
	}),
	fx.Invoke(func(lc fx.Lifecycle, m *SiteMetrics, logger *zap.Logger, db *gorm.DB) {
		if m == nil {
			return
		}

		if logger == nil {
			logger = zap.NewNop()
		}

		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				logger.Info("starting site metrics background worker")
				go func() {
					ticker := time.NewTicker(pushInterval)
					defer ticker.Stop()

					// Initial push
					collectAndPush(ctx, m, db, logger)

					for {
						select {
						case <-ticker.C:
							collectAndPush(ctx, m, db, logger)
						case <-ctx.Done():
							logger.Info("stopping site metrics background worker")
							return
						}
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)

func collectAndPush(ctx context.Context, m *SiteMetrics, db *gorm.DB, logger *zap.Logger) {
	updateSystemMetrics(m)
	updateFleetCounts(ctx, m, db)
	if err := m.Push(ctx); err != nil {
		logger.Warn("site metrics push failed", zap.Error(err))
	}
}

func updateSystemMetrics(m *SiteMetrics) {
	if m == nil {
		return
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.SetMemoryUsage(stats.Sys)
}

func updateFleetCounts(ctx context.Context, m *SiteMetrics, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}

	var count int64
	if err := db.WithContext(ctx).Table("equipment").Where("active = true").Count(&count).Error; err == nil {
		m.SetEquipmentTotal(count)
	}
	if err := db.WithContext(ctx).Table("readings").Count(&count).Error; err == nil {
		m.SetReadingsTotal(count)
	}
	if err := db.WithContext(ctx).Table("fuel_events").Count(&count).Error; err == nil {
		m.SetFuelEventsTotal(count)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var covered int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT equipment_id) FROM readings WHERE reading_date >= ?`, today,
	).Scan(&covered).Error
	if err != nil {
		return
	}
	var active int64
	if err := db.WithContext(ctx).Table("equipment").Where("active = true").Count(&active).Error; err != nil {
		return
	}
	pending := active - covered
	if pending < 0 {
		pending = 0
	}
	m.SetPendingToday(pending)
}
