package rosterlock

import "go.uber.org/fx"

var Module = fx.Module("roster.lock",
	fx.Provide(NewClient),
	fx.Provide(NewLocker),
)
