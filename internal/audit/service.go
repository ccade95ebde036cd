package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It is append-only: there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information about pricing overrides.
//
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if !e.Type.valid() {
		return ErrInvalidEvent
	}
	if e.Type != EventTypeOverridesReverted && e.RoomID == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogOverrideSet records a staff price entered for a room.
func (s *Service) LogOverrideSet(ctx context.Context, actorUserID, actorRole, ip, roomID string, price float64) error {
	return s.Append(ctx, Event{
		Type:        EventTypeOverrideSet,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		RoomID:      roomID,
		Price:       &price,
		Message:     "override set",
	})
}

// LogOverrideCleared records a manual override removal.
func (s *Service) LogOverrideCleared(ctx context.Context, actorUserID, actorRole, ip, roomID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeOverrideCleared,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		RoomID:      roomID,
		Message:     "override cleared",
	})
}

// LogRevert records a weekly revert. It has no actor.
func (s *Service) LogRevert(ctx context.Context, weekStart time.Time, cleared int) error {
	meta, err := json.Marshal(RevertMetadata{WeekStart: weekStart.UTC(), Cleared: cleared})
	if err != nil {
		return err
	}
	return s.Append(ctx, Event{
		Type:     EventTypeOverridesReverted,
		Message:  fmt.Sprintf("weekly revert cleared %d override(s)", cleared),
		Metadata: string(meta),
	})
}
