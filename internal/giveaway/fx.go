package giveaway

import (
	"github.com/MowahidLatif/helping-hands-backend/internal/giveaway/service"
	"go.uber.org/fx"
)

var Module = fx.Module("giveaway",
	fx.Provide(service.NewPicker),
	fx.Provide(service.NewService),
)
