package activity

import (
	"github.com/coopsuite/copay/internal/activity/repository"
	"github.com/coopsuite/copay/internal/activity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
