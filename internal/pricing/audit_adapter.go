package pricing

import (
	"context"
	"time"

	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/audit"
)

// AuditAdapter bridges the pricing audit hook to the shared audit.Service.
//
// This keeps pricing internals from depending on audit persistence.
type AuditAdapter struct {
	Audit *audit.Service
}

func (a AuditAdapter) LogOverrideSet(ctx context.Context, o Override, actor Actor) error {
	if a.Audit == nil {
		return nil
	}
	return a.Audit.LogOverrideSet(ctx, actor.UserID, actor.Role, ClientIPFromContext(ctx), o.RoomID, o.Price)
}

func (a AuditAdapter) LogOverrideCleared(ctx context.Context, roomID string, actor Actor) error {
	if a.Audit == nil {
		return nil
	}
	return a.Audit.LogOverrideCleared(ctx, actor.UserID, actor.Role, ClientIPFromContext(ctx), roomID)
}

func (a AuditAdapter) LogOverridesReverted(ctx context.Context, weekStart time.Time, cleared int) error {
	if a.Audit == nil {
		return nil
	}
	return a.Audit.LogRevert(ctx, weekStart, cleared)
}

var _ AuditLogger = AuditAdapter{}
