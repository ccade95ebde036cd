package pricing

import (
	"context"
	"errors"
	"time"
)

var errStoreDown = errors.New("store down")

// faultyRepo wraps MemoryRepo and fails selected operations.
type faultyRepo struct {
	*MemoryRepo

	failGet      error
	failSet      error
	failDelete   error
	failList     error
	failClear    error
	failBoundary error
	// failAdvanceOnce fails the next AdvanceBoundary call only.
	failAdvanceOnce error
	// beforeClear runs inside ClearAll, after the revert has started.
	beforeClear func()
}

func newFaultyRepo() *faultyRepo { return &faultyRepo{MemoryRepo: NewMemoryRepo()} }

func (r *faultyRepo) Get(ctx context.Context, roomID string) (Override, bool, error) {
	if r.failGet != nil {
		return Override{}, false, r.failGet
	}
	return r.MemoryRepo.Get(ctx, roomID)
}

func (r *faultyRepo) Set(ctx context.Context, o Override) error {
	if r.failSet != nil {
		return r.failSet
	}
	return r.MemoryRepo.Set(ctx, o)
}

func (r *faultyRepo) Delete(ctx context.Context, roomID string) error {
	if r.failDelete != nil {
		return r.failDelete
	}
	return r.MemoryRepo.Delete(ctx, roomID)
}

func (r *faultyRepo) List(ctx context.Context) (map[string]Override, error) {
	if r.failList != nil {
		return nil, r.failList
	}
	return r.MemoryRepo.List(ctx)
}

func (r *faultyRepo) ClearAll(ctx context.Context, before time.Time) (int, error) {
	if r.failClear != nil {
		return 0, r.failClear
	}
	if r.beforeClear != nil {
		r.beforeClear()
	}
	return r.MemoryRepo.ClearAll(ctx, before)
}

func (r *faultyRepo) Boundary(ctx context.Context) (time.Time, error) {
	if r.failBoundary != nil {
		return time.Time{}, r.failBoundary
	}
	return r.MemoryRepo.Boundary(ctx)
}

func (r *faultyRepo) AdvanceBoundary(ctx context.Context, to time.Time) (bool, error) {
	if err := r.failAdvanceOnce; err != nil {
		r.failAdvanceOnce = nil
		return false, err
	}
	return r.MemoryRepo.AdvanceBoundary(ctx, to)
}

// faultyCatalog fails every lookup.
type faultyCatalog struct{}

func (faultyCatalog) Room(context.Context, string) (Room, bool, error) {
	return Room{}, false, errStoreDown
}

func (faultyCatalog) Rooms(context.Context) ([]Room, error) { return nil, errStoreDown }

// heldLocker reports the lock as owned by another process.
type heldLocker struct{}

func (heldLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, nil
}

func (heldLocker) Release(context.Context, string, string) error { return nil }

func mustSet(repo OverrideStore, roomID string, price float64, at time.Time) {
	if err := repo.Set(context.Background(), Override{RoomID: roomID, Price: price, SetAt: at}); err != nil {
		panic(err)
	}
}
