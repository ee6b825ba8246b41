package opportunity

import (
	"github.com/smallbiznis/dealroster/internal/opportunity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("opportunity.repository",
	fx.Provide(repository.Provide),
)
