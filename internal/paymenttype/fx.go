package paymenttype

import (
	"github.com/coopsuite/copay/internal/paymenttype/repository"
	"github.com/coopsuite/copay/internal/paymenttype/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymenttype",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
