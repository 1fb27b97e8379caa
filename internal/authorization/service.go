package authorization

import "context"

// Service answers "may this actor perform this action on this object within
// this org". Actors are "user:<id>" or "system"; system bypasses role checks.
type Service interface {
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}
