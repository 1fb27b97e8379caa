package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository is the donation ledger. Status writes are single atomic
// statements so concurrent reconciler instances serialize through the
// store rather than through application locks.
type Repository interface {
	Create(ctx context.Context, d *Donation) error
	FindByID(ctx context.Context, id snowflake.ID) (*Donation, error)
	FindByIntentID(ctx context.Context, intentID string) (*Donation, error)

	// AttachIntentID links an intent to a donation only when no intent is
	// attached yet. Reports whether the link was written.
	AttachIntentID(ctx context.Context, id snowflake.ID, intentID string) (bool, error)

	SetStatusByIntentID(ctx context.Context, intentID string, status Status) (int64, error)
	SetStatusByID(ctx context.Context, id snowflake.ID, status Status) (int64, error)

	// ListSucceeded returns succeeded donations for a campaign with
	// amount_cents >= minAmountCents, oldest first.
	ListSucceeded(ctx context.Context, campaignID snowflake.ID, minAmountCents int64) ([]Donation, error)

	// ListSucceededWithEmail returns every succeeded donation that has a
	// donor email on file, oldest first, regardless of amount.
	ListSucceededWithEmail(ctx context.Context, campaignID snowflake.ID) ([]Donation, error)

	RecentSucceeded(ctx context.Context, campaignID snowflake.ID, limit int) ([]Donation, error)
	CountAndLastSucceeded(ctx context.Context, campaignID snowflake.ID) (int64, *time.Time, error)
}
