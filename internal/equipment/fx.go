package equipment

import (
	"github.com/obralog/fleetmeter/internal/equipment/repository"
	"github.com/obralog/fleetmeter/internal/equipment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("equipment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
