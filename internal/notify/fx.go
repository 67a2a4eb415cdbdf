package notify

import (
	"github.com/visalane/visalane/internal/notify/outbox"
	"go.uber.org/fx"
)

var Module = fx.Module("notify",
	fx.Provide(outbox.New),
)
