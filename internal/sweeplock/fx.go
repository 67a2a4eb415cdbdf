package sweeplock

import "go.uber.org/fx"

var Module = fx.Module("sweeplock",
	fx.Provide(New),
)
