package reading

import (
	"github.com/obralog/fleetmeter/internal/reading/repository"
	"github.com/obralog/fleetmeter/internal/reading/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reading.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
