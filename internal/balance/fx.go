package balance

import (
	"github.com/coopsuite/copay/internal/balance/repository"
	"github.com/coopsuite/copay/internal/balance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("balance",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
