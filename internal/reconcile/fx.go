package reconcile

import (
	"github.com/obralog/fleetmeter/internal/reconcile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile.service",
	fx.Provide(service.New),
)
