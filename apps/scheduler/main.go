// Scheduler-only entrypoint for deployments that split the HTTP API from
// the background jobs. The monolith in cmd/fleetmeter runs both.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/obralog/fleetmeter/internal/backfill"
	"github.com/obralog/fleetmeter/internal/clock"
	"github.com/obralog/fleetmeter/internal/config"
	"github.com/obralog/fleetmeter/internal/equipment"
	"github.com/obralog/fleetmeter/internal/fueling"
	"github.com/obralog/fleetmeter/internal/guard"
	"github.com/obralog/fleetmeter/internal/observability"
	"github.com/obralog/fleetmeter/internal/reading"
	"github.com/obralog/fleetmeter/internal/scheduler"
	"github.com/obralog/fleetmeter/internal/sheets"
	"github.com/obralog/fleetmeter/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		guard.Module,

		// Domain services the backfill corrector reads through
		equipment.Module,
		reading.Module,
		fueling.Module,
		sheets.Module,
		backfill.Module,

		scheduler.Module,
		fx.Invoke(scheduler.Start),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
