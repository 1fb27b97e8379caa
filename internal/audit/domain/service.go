package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service appends audit entries. Writes are fire-and-forget from the caller's
// perspective; an audit failure is logged but never fails the audited action.
type Service interface {
	AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}
