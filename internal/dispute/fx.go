package dispute

import (
	"github.com/visalane/visalane/internal/dispute/repository"
	"github.com/visalane/visalane/internal/dispute/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dispute",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
