package booking

import (
	"github.com/visalane/visalane/internal/booking/repository"
	"github.com/visalane/visalane/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
