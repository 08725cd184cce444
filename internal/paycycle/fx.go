package paycycle

import (
	"github.com/smallbiznis/salesdesk/internal/paycycle/repository"
	"github.com/smallbiznis/salesdesk/internal/paycycle/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paycycle.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
