package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service exposes campaign lookups, the aggregate recomputer and the cached
// progress read model.
type Service interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Campaign, error)

	// RecomputeTotal re-derives total_raised from the donation ledger and
	// writes it back in a single atomic statement. Safe to call redundantly:
	// repeated or concurrent calls converge to the same value.
	RecomputeTotal(ctx context.Context, campaignID snowflake.ID) (float64, error)

	// Progress serves the cached snapshot, recomputing it on a miss.
	Progress(ctx context.Context, campaignID snowflake.ID) (Progress, error)

	// InvalidateProgress drops the cached snapshot so the next read is fresh.
	InvalidateProgress(ctx context.Context, campaignID snowflake.ID)
}

// ProgressCache holds the time-boxed progress snapshot. The TTL is a
// backstop: correctness does not depend on invalidation alone.
type ProgressCache interface {
	Get(ctx context.Context, campaignID snowflake.ID) (Progress, bool)
	Set(ctx context.Context, campaignID snowflake.ID, p Progress, ttl time.Duration)
	Delete(ctx context.Context, campaignID snowflake.ID)
}

var (
	ErrNotFound = errors.New("campaign_not_found")
)
