package eventstore

import "go.uber.org/fx"

var Module = fx.Module("eventstore",
	fx.Provide(NewStore),
)
