package locks

import (
	"context"
	"strings"

	"github.com/coopsuite/copay/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("locks",
	fx.Provide(ProvideClient),
	fx.Provide(NewLocker),
)

// ProvideClient returns nil when Redis is not configured. Single-instance
// deployments run fine without it; the in-process job guard still applies.
func ProvideClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}
