package earning

import (
	"github.com/visalane/visalane/internal/earning/repository"
	"github.com/visalane/visalane/internal/earning/service"
	"go.uber.org/fx"
)

var Module = fx.Module("earning",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
