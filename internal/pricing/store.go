package pricing

import (
	"context"
	"time"
)

// OverrideStore persists staff overrides keyed by room id.
// Implementations can be Postgres, Redis or in-memory.
//
// Atomicity contract:
// - Set is atomic per key; readers never observe a half-written override.
// - ClearAll removes, in one step, every override whose SetAt is before the
//   cutoff. Overrides stamped at or after the cutoff survive, including ones
//   written while the revert was already running.
type OverrideStore interface {
	Set(ctx context.Context, o Override) error
	// Get returns (Override{}, false, nil) when no override exists.
	Get(ctx context.Context, roomID string) (Override, bool, error)
	Delete(ctx context.Context, roomID string) error
	List(ctx context.Context) (map[string]Override, error)
	// ClearAll removes every override set before `before` and returns how
	// many were removed.
	ClearAll(ctx context.Context, before time.Time) (int, error)
}

// BoundaryStore persists the WeekBoundary scalar.
type BoundaryStore interface {
	// Boundary returns the zero time when no revert ever ran.
	Boundary(ctx context.Context) (time.Time, error)
	// AdvanceBoundary moves the boundary to `to` only if it is later than the
	// stored value. It reports whether this call moved it.
	AdvanceBoundary(ctx context.Context, to time.Time) (bool, error)
}

// RateSource resolves externally maintained room reference rates.
type RateSource interface {
	// Room returns (Room{}, false, nil) when the room is unknown.
	Room(ctx context.Context, roomID string) (Room, bool, error)
	Rooms(ctx context.Context) ([]Room, error)
}

// Locker serializes the revert across processes. TryLock reports false when
// another holder owns the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}
