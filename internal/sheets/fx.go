package sheets

import (
	"github.com/obralog/fleetmeter/internal/sheets/client"
	"github.com/obralog/fleetmeter/internal/sheets/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sheets.service",
	fx.Provide(client.NewFromConfig),
	fx.Provide(service.New),
)
