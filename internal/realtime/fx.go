package realtime

import (
	"context"

	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("realtime",
	fx.Provide(provideHub),
	fx.Provide(provideNotifier),
)

func provideHub(lc fx.Lifecycle, log *zap.Logger, node *snowflake.Node) *Hub {
	hub := NewHub(log, node)

	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			hub.Shutdown()
			return nil
		},
	})
	return hub
}

func provideNotifier(hub *Hub, log *zap.Logger, cfg config.Config) Notifier {
	return NewNotifier(hub, log, metrics.PipelineWithConfig(metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}), cfg.NotifyTimeout())
}
