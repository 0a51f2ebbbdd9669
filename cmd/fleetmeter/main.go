package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/obralog/fleetmeter/internal/clock"
	"github.com/obralog/fleetmeter/internal/guard"
	"github.com/obralog/fleetmeter/internal/migration"
	"github.com/obralog/fleetmeter/internal/observability"
	"github.com/obralog/fleetmeter/internal/scheduler"
	"github.com/obralog/fleetmeter/internal/server"
	"github.com/obralog/fleetmeter/pkg/db"
	"go.uber.org/fx"
)

func main() {
	// config.Module arrives through server.Module.
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		guard.Module,
		migration.Module,

		server.Module,

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
