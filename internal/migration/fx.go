package migration

import (
	"github.com/obralog/fleetmeter/internal/config"
	"github.com/obralog/fleetmeter/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if cfg.Environment != "production" {
			return seed.EnsureDemoFleet(conn)
		}
		return nil
	}),
)
