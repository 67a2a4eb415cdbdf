package expert

import (
	"github.com/visalane/visalane/internal/expert/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("expert",
	fx.Provide(repository.Provide),
)
