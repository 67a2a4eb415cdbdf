package payout

import (
	"github.com/visalane/visalane/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout",
	fx.Provide(service.NewBatcher),
)
