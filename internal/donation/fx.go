package donation

import (
	"github.com/MowahidLatif/helping-hands-backend/internal/donation/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("donation",
	fx.Provide(repository.Provide),
)
