package attempt

import (
	"github.com/smallbiznis/planbilling/internal/attempt/repository"
	"github.com/smallbiznis/planbilling/internal/attempt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("attempt.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
