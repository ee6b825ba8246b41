package capability

import (
	"github.com/smallbiznis/dealroster/internal/capability/repository"
	"github.com/smallbiznis/dealroster/internal/capability/service"
	"go.uber.org/fx"
)

var Module = fx.Module("capability.registry",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
