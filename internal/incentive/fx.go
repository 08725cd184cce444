package incentive

import (
	"github.com/smallbiznis/salesdesk/internal/incentive/repository"
	"github.com/smallbiznis/salesdesk/internal/incentive/service"
	"go.uber.org/fx"
)

var Module = fx.Module("incentive.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideRules),
	fx.Provide(service.New),
)
