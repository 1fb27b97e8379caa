package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service builds donor populations and runs audited draws over them.
type Service interface {
	// SelectPopulation returns the deterministic, ordered ticket list for a
	// campaign under the given mode and minimum amount.
	SelectPopulation(ctx context.Context, campaignID snowflake.ID, mode Mode, minAmountCents int64) ([]PopulationEntry, error)

	// Draw picks one winner uniformly at random and persists the audit
	// record. The actor must hold an administrative role over the
	// campaign's org.
	Draw(ctx context.Context, campaignID, actorUserID snowflake.ID, mode Mode, minAmountCents int64, notes string) (*DrawResult, error)

	ListLogs(ctx context.Context, campaignID snowflake.ID, limit int) ([]*GiveawayLog, error)
}

// Picker selects an index in [0, n). Implementations must be
// cryptographically strong and non-seedable.
type Picker interface {
	Pick(n int) (int, error)
}
