package payment

import (
	"github.com/coopsuite/copay/internal/payment/repository"
	"github.com/coopsuite/copay/internal/payment/service"
	"github.com/coopsuite/copay/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(webhook.NewService),
)
