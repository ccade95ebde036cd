package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block pricing writes on audit failures.
//
// Storage (Postgres): table audit_events, INSERT-only. See PostgresRepo.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated admin causing the event (empty for system reverts).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// RoomID is empty for events that span all rooms.
	RoomID string `json:"room_id,omitempty" db:"room_id"`
	// Price is set for override_set only.
	Price *float64 `json:"price,omitempty" db:"price"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RevertMetadata is the Metadata payload of an overrides_reverted event.
type RevertMetadata struct {
	WeekStart time.Time `json:"week_start"`
	Cleared   int       `json:"cleared"`
}

type EventType string

const (
	EventTypeOverrideSet       EventType = "override_set"
	EventTypeOverrideCleared   EventType = "override_cleared"
	EventTypeOverridesReverted EventType = "overrides_reverted"
)

func (t EventType) valid() bool {
	switch t {
	case EventTypeOverrideSet, EventTypeOverrideCleared, EventTypeOverridesReverted:
		return true
	default:
		return false
	}
}
