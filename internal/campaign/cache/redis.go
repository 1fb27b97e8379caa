package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis shares the progress snapshot across reconciler instances. Failures
// degrade to cache misses; the store stays authoritative.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedis(client *redis.Client, log *zap.Logger) *Redis {
	return &Redis{client: client, log: log.Named("campaign.cache")}
}

func progressKey(campaignID snowflake.ID) string {
	return fmt.Sprintf("campaign:%s:progress:v1", campaignID.String())
}

func (r *Redis) Get(ctx context.Context, campaignID snowflake.ID) (campaigndomain.Progress, bool) {
	var progress campaigndomain.Progress
	raw, err := r.client.Get(ctx, progressKey(campaignID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("progress cache read failed", zap.Error(err))
		}
		return progress, false
	}
	if err := json.Unmarshal(raw, &progress); err != nil {
		return progress, false
	}
	return progress, true
}

func (r *Redis) Set(ctx context.Context, campaignID snowflake.ID, p campaigndomain.Progress, ttl time.Duration) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, progressKey(campaignID), raw, ttl).Err(); err != nil {
		r.log.Warn("progress cache write failed", zap.Error(err))
	}
}

func (r *Redis) Delete(ctx context.Context, campaignID snowflake.ID) {
	if err := r.client.Del(ctx, progressKey(campaignID)).Err(); err != nil {
		r.log.Warn("progress cache invalidation failed", zap.Error(err))
	}
}
