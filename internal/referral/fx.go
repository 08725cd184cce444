package referral

import (
	"github.com/smallbiznis/salesdesk/internal/referral/service"
	"go.uber.org/fx"
)

var Module = fx.Module("referral.service",
	fx.Provide(service.New),
)
