package backfill

import (
	"github.com/obralog/fleetmeter/internal/backfill/service"
	"go.uber.org/fx"
)

var Module = fx.Module("backfill.service",
	fx.Provide(service.New),
)
