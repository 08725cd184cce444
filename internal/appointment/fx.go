package appointment

import (
	"github.com/smallbiznis/salesdesk/internal/appointment/repository"
	"github.com/smallbiznis/salesdesk/internal/appointment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("appointment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
