package gaps

import (
	"github.com/obralog/fleetmeter/internal/gaps/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gaps.service",
	fx.Provide(service.New),
)
