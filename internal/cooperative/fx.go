package cooperative

import (
	"github.com/coopsuite/copay/internal/cooperative/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("cooperative",
	fx.Provide(repository.Provide),
)
