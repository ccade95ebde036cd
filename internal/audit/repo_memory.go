package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps audit events in process. Used by tests and the memory
// store backend; events are lost on restart.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of every event in append order.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByRoom returns the events recorded for roomID in append order.
func (r *MemoryRepo) ByRoom(roomID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	return out
}

// ListBetween returns events with from <= CreatedAt < to in append order.
func (r *MemoryRepo) ListBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
