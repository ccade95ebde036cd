package pricing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RajAbey68/ko-lake-villa-website-sub007/pkg/logger"
)

const (
	revertLockKey         = "pricing:revert_lock"
	defaultRevertLockTTL  = 30 * time.Second
	defaultReconcileEvery = 5 * time.Minute
)

// RevertState is the scheduler's view of the current week.
type RevertState string

const (
	// RevertStateCurrent: no Sunday boundary crossed since the last clear.
	RevertStateCurrent RevertState = "current"
	// RevertStateDue: a Sunday boundary was crossed; overrides must be cleared.
	RevertStateDue RevertState = "due"
)

// Scheduler reverts all overrides once per week.
//
// The check is lazy: callers run Reconcile with the instant they are serving,
// and the comparison "most recent Sunday > stored boundary" stays correct no
// matter how many ticks were missed while the process was down.
//
// Order of a revert: ClearAll(weekStart), then AdvanceBoundary. A crash in
// between leaves the state DUE and the next call clears again, which is
// idempotent. ClearAll only removes overrides stamped before weekStart, so a
// write that lands while a revert holds the lock is kept.
type Scheduler struct {
	Overrides OverrideStore
	Boundary  BoundaryStore

	// Locker serializes reverts across processes. Nil means single-process.
	Locker  Locker
	LockTTL time.Duration

	Location *time.Location
	Metrics  *Metrics
	Now      func() time.Time

	// OnRevert runs after a successful revert, outside the store calls.
	OnRevert func(ctx context.Context, weekStart time.Time, cleared int)

	fallbackOnce sync.Once
	fallback     Locker
}

func NewScheduler(overrides OverrideStore, boundary BoundaryStore, loc *time.Location) *Scheduler {
	return &Scheduler{
		Overrides: overrides,
		Boundary:  boundary,
		Locker:    NewMutexLocker(),
		LockTTL:   defaultRevertLockTTL,
		Location:  loc,
		Now:       time.Now,
	}
}

// State reports whether a revert is owed at now, along with the week start
// that now belongs to.
func (s *Scheduler) State(ctx context.Context, now time.Time) (RevertState, time.Time, error) {
	ws := WeekStart(now, s.Location)
	b, err := s.Boundary.Boundary(ctx)
	if err != nil {
		s.Metrics.IncStoreError("read_boundary")
		return "", ws, persistenceErr("read week boundary", err)
	}
	if ws.After(b) {
		return RevertStateDue, ws, nil
	}
	return RevertStateCurrent, ws, nil
}

// Reconcile performs the revert if one is due at now. It reports whether this
// call cleared the overrides. Another process holding the revert lock is not
// an error; that process performs the revert.
func (s *Scheduler) Reconcile(ctx context.Context, now time.Time) (bool, error) {
	if s.Overrides == nil || s.Boundary == nil {
		return false, errors.New("pricing: scheduler stores not configured")
	}

	state, ws, err := s.State(ctx, now)
	if err != nil || state == RevertStateCurrent {
		return false, err
	}

	locker := s.locker()
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = defaultRevertLockTTL
	}

	token, ok, err := locker.TryLock(ctx, revertLockKey, ttl)
	if err != nil {
		s.Metrics.IncStoreError("revert_lock")
		return false, persistenceErr("acquire revert lock", err)
	}
	if !ok {
		return false, nil
	}
	defer func() {
		_ = locker.Release(context.WithoutCancel(ctx), revertLockKey, token)
	}()

	// Double-check under the lock: another process may have just finished.
	state, ws, err = s.State(ctx, now)
	if err != nil || state == RevertStateCurrent {
		return false, err
	}

	cleared, err := s.Overrides.ClearAll(ctx, ws)
	if err != nil {
		s.Metrics.IncStoreError("clear_all")
		return false, persistenceErr("clear overrides", err)
	}
	if _, err := s.Boundary.AdvanceBoundary(ctx, ws); err != nil {
		s.Metrics.IncStoreError("advance_boundary")
		return false, persistenceErr("advance week boundary", err)
	}

	s.Metrics.ObserveRevert(cleared)
	logger.From(ctx).Info("weekly override revert",
		"week_start", ws,
		"cleared", cleared,
	)
	if s.OnRevert != nil {
		s.OnRevert(ctx, ws, cleared)
	}
	return true, nil
}

// locker returns Locker, or a process-local mutex shared by every call when
// none was configured.
func (s *Scheduler) locker() Locker {
	if s.Locker != nil {
		return s.Locker
	}
	s.fallbackOnce.Do(func() { s.fallback = NewMutexLocker() })
	return s.fallback
}

// Run reconciles on a fixed interval until ctx is done. It complements the
// per-request check for sites with long idle stretches.
func (s *Scheduler) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = defaultReconcileEvery
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}
	log := logger.From(ctx)

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := s.Reconcile(ctx, now()); err != nil {
			log.Error("revert reconcile failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
