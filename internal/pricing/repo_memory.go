package pricing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-process override and boundary store useful for tests
// and local development. It does not survive restarts.
//
// ClearAll rebuilds the map under the write lock, keeping overrides stamped
// at or after the cutoff.
type MemoryRepo struct {
	mu        sync.RWMutex
	overrides map[string]Override
	boundary  time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{overrides: make(map[string]Override)}
}

func (r *MemoryRepo) Set(ctx context.Context, o Override) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[o.RoomID] = o
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, roomID string) (Override, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.overrides[roomID]
	return o, ok, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, roomID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, roomID)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context) (map[string]Override, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Override, len(r.overrides))
	for k, v := range r.overrides {
		out[k] = v
	}
	return out, nil
}

func (r *MemoryRepo) ClearAll(ctx context.Context, before time.Time) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make(map[string]Override, len(r.overrides))
	for id, o := range r.overrides {
		if !o.SetAt.Before(before) {
			kept[id] = o
		}
	}
	removed := len(r.overrides) - len(kept)
	r.overrides = kept
	return removed, nil
}

func (r *MemoryRepo) Boundary(ctx context.Context) (time.Time, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.boundary, nil
}

func (r *MemoryRepo) AdvanceBoundary(ctx context.Context, to time.Time) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if !to.After(r.boundary) {
		return false, nil
	}
	r.boundary = to
	return true, nil
}

// MemoryCatalog is a fixed room catalog, typically loaded from a rates file.
type MemoryCatalog struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

func NewMemoryCatalog(rooms ...Room) *MemoryCatalog {
	c := &MemoryCatalog{rooms: make(map[string]Room, len(rooms))}
	for _, rm := range rooms {
		c.rooms[rm.ID] = rm
	}
	return c
}

func (c *MemoryCatalog) Put(rm Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[rm.ID] = rm
}

func (c *MemoryCatalog) Room(ctx context.Context, roomID string) (Room, bool, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	rm, ok := c.rooms[roomID]
	return rm, ok, nil
}

func (c *MemoryCatalog) Rooms(ctx context.Context) ([]Room, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Room, 0, len(c.rooms))
	for _, rm := range c.rooms {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MutexLocker is the single-process Locker. Tokens are only checked for
// presence; ownership is implied by the process.
type MutexLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{held: make(map[string]string)}
}

func (l *MutexLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	_, _ = ctx, ttl
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

func (l *MutexLocker) Release(ctx context.Context, key, token string) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

var (
	_ OverrideStore = (*MemoryRepo)(nil)
	_ BoundaryStore = (*MemoryRepo)(nil)
	_ RateSource    = (*MemoryCatalog)(nil)
	_ Locker        = (*MutexLocker)(nil)
)
