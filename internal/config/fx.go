package config

import (
	"github.com/smallbiznis/dealroster/pkg/db"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(func(cfg Config) db.Config { return cfg.Database }),
	fx.Provide(NewRosterConfigHolder),
)
