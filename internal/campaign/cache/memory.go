package cache

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/MowahidLatif/helping-hands-backend/internal/cache"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
)

// Memory is the in-process progress cache used when no Redis is configured.
type Memory struct {
	inner *cache.TTLCache[snowflake.ID, campaigndomain.Progress]
}

func NewMemory() *Memory {
	return &Memory{inner: cache.NewTTLCache[snowflake.ID, campaigndomain.Progress]()}
}

func (m *Memory) Get(_ context.Context, campaignID snowflake.ID) (campaigndomain.Progress, bool) {
	return m.inner.Get(campaignID)
}

func (m *Memory) Set(_ context.Context, campaignID snowflake.ID, p campaigndomain.Progress, ttl time.Duration) {
	m.inner.Set(campaignID, p, ttl)
}

func (m *Memory) Delete(_ context.Context, campaignID snowflake.ID) {
	m.inner.Delete(campaignID)
}
