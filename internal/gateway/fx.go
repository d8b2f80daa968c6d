package gateway

import (
	"time"

	"github.com/coopsuite/copay/internal/config"
	"github.com/coopsuite/copay/internal/gateway/adapters"
	"github.com/coopsuite/copay/internal/gateway/adapters/irembopay"
	"github.com/coopsuite/copay/internal/gateway/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway",
	fx.Provide(NewRegistry),
)

func NewRegistry(cfg config.Config, log *zap.Logger) (*adapters.Registry, error) {
	client, err := irembopay.New(domain.Config{
		BaseURL:       cfg.Gateway.BaseURL,
		APIKey:        cfg.Gateway.APIKey,
		SecretKey:     cfg.Gateway.SecretKey,
		WebhookSecret: cfg.Gateway.WebhookSecret,
		CallbackURL:   cfg.Gateway.CallbackURL,
		Timeout:       time.Duration(cfg.Gateway.Timeout) * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}
	return adapters.NewRegistry(client), nil
}
