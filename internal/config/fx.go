package config

import "go.uber.org/fx"

var Module = fx.Module("config",
	fx.Provide(
		Load,
		provideCommissionConfigHolder,
	),
)

func provideCommissionConfigHolder(cfg Config) (*CommissionConfigHolder, error) {
	return NewCommissionConfigHolder(cfg.CommissionConfigPath)
}
