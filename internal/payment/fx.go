package payment

import (
	"github.com/visalane/visalane/internal/payment/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(stripe.New),
)
