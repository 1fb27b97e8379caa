package campaign

import (
	campaigncache "github.com/MowahidLatif/helping-hands-backend/internal/campaign/cache"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/campaign/service"
	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("campaign",
	fx.Provide(provideProgressCache),
	fx.Provide(service.NewService),
)

func provideProgressCache(cfg config.Config, log *zap.Logger) (campaigndomain.ProgressCache, error) {
	if cfg.RedisURL == "" {
		return campaigncache.NewMemory(), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return campaigncache.NewRedis(redis.NewClient(opts), log), nil
}
