package webhook

import (
	"github.com/MowahidLatif/helping-hands-backend/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook",
	fx.Provide(service.NewService),
)
