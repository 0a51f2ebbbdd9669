package fueling

import (
	"github.com/obralog/fleetmeter/internal/fueling/repository"
	"github.com/obralog/fleetmeter/internal/fueling/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fueling.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
