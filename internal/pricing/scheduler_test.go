package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_FirstRunIsDue(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	s := NewScheduler(repo, repo, time.UTC)

	state, ws, err := s.State(ctx, sunday.Add(36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, RevertStateDue, state)
	assert.True(t, ws.Equal(sunday))

	reverted, err := s.Reconcile(ctx, sunday.Add(36*time.Hour))
	require.NoError(t, err)
	assert.True(t, reverted)

	b, _ := repo.Boundary(ctx)
	assert.True(t, b.Equal(sunday))
}

func TestReconcile_IdempotentWithinWeek(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	s := NewScheduler(repo, repo, time.UTC)
	now := sunday.Add(2 * time.Hour)

	_, err := s.Reconcile(ctx, now)
	require.NoError(t, err)
	mustSet(repo, "r1", 388, now)

	for _, at := range []time.Time{now, now.Add(time.Hour), sunday.AddDate(0, 0, 7).Add(-time.Nanosecond)} {
		reverted, err := s.Reconcile(ctx, at)
		require.NoError(t, err)
		assert.False(t, reverted)
	}

	_, ok, _ := repo.Get(ctx, "r1")
	assert.True(t, ok, "override must survive same-week reconciles")
}

func TestReconcile_ClearsAfterSundayBoundary(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	reg := prometheus.NewRegistry()
	s := NewScheduler(repo, repo, time.UTC)
	s.Metrics = NewMetrics(reg)

	var hookWeek time.Time
	var hookCleared int
	s.OnRevert = func(_ context.Context, ws time.Time, cleared int) {
		hookWeek, hookCleared = ws, cleared
	}

	_, err := s.Reconcile(ctx, sunday)
	require.NoError(t, err)
	mustSet(repo, "r1", 388, sunday.Add(time.Hour))
	mustSet(repo, "r2", 120, sunday.Add(time.Hour))

	next := sunday.AddDate(0, 0, 7)
	reverted, err := s.Reconcile(ctx, next)
	require.NoError(t, err)
	assert.True(t, reverted)

	all, _ := repo.List(ctx)
	assert.Empty(t, all)
	b, _ := repo.Boundary(ctx)
	assert.True(t, b.Equal(next))

	assert.True(t, hookWeek.Equal(next))
	assert.Equal(t, 2, hookCleared)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics.reverts))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics.overridesCleared))
}

func TestReconcile_MissedWeeksRevertOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	s := NewScheduler(repo, repo, time.UTC)

	_, err := s.Reconcile(ctx, sunday)
	require.NoError(t, err)
	mustSet(repo, "r1", 388, sunday)

	// Process was down for three weeks.
	later := sunday.AddDate(0, 0, 23)
	reverted, err := s.Reconcile(ctx, later)
	require.NoError(t, err)
	assert.True(t, reverted)

	b, _ := repo.Boundary(ctx)
	assert.True(t, b.Equal(WeekStart(later, time.UTC)))

	reverted, err = s.Reconcile(ctx, later)
	require.NoError(t, err)
	assert.False(t, reverted)
}

func TestReconcile_LockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	mustSet(repo, "r1", 388, sunday)

	s := NewScheduler(repo, repo, time.UTC)
	s.Locker = heldLocker{}

	reverted, err := s.Reconcile(ctx, sunday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.False(t, reverted)

	_, ok, _ := repo.Get(ctx, "r1")
	assert.True(t, ok, "lock holder performs the revert, not us")
}

func TestReconcile_ClearFailureLeavesStateDue(t *testing.T) {
	ctx := context.Background()
	repo := newFaultyRepo()
	mustSet(repo, "r1", 388, sunday)
	repo.failClear = errStoreDown

	s := NewScheduler(repo, repo, time.UTC)
	next := sunday.AddDate(0, 0, 7)

	_, err := s.Reconcile(ctx, next)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, errStoreDown)

	state, _, err := s.State(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, RevertStateDue, state)

	repo.failClear = nil
	reverted, err := s.Reconcile(ctx, next)
	require.NoError(t, err)
	assert.True(t, reverted)
}

func TestReconcile_CrashBetweenClearAndAdvanceReclears(t *testing.T) {
	ctx := context.Background()
	repo := newFaultyRepo()
	s := NewScheduler(repo, repo, time.UTC)
	_, err := s.Reconcile(ctx, sunday)
	require.NoError(t, err)

	mustSet(repo, "r1", 388, sunday)
	repo.failAdvanceOnce = errStoreDown
	next := sunday.AddDate(0, 0, 7)

	_, err = s.Reconcile(ctx, next)
	require.Error(t, err)
	_, ok, _ := repo.Get(ctx, "r1")
	assert.False(t, ok, "clear happens before advance")

	// An override written before the retry is also cleared: the week's
	// revert has not completed yet.
	mustSet(repo, "r2", 90, next.Add(-time.Minute))
	reverted, err := s.Reconcile(ctx, next)
	require.NoError(t, err)
	assert.True(t, reverted)
	_, ok, _ = repo.Get(ctx, "r2")
	assert.False(t, ok)
}

func TestReconcile_BoundaryReadFailure(t *testing.T) {
	repo := newFaultyRepo()
	repo.failBoundary = errStoreDown
	s := NewScheduler(repo, repo, time.UTC)

	_, err := s.Reconcile(context.Background(), sunday)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestReconcile_ConcurrentCallsWithoutLockerRevertOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	mustSet(repo, "r1", 388, sunday)
	s := &Scheduler{Overrides: repo, Boundary: repo, Location: time.UTC}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reverted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Reconcile(ctx, sunday.AddDate(0, 0, 7))
			if err != nil {
				t.Errorf("reconcile: %v", err)
				return
			}
			if ok {
				mu.Lock()
				reverted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, reverted)
	assert.Nil(t, s.Locker, "configured locker is left untouched")
}

func TestReconcile_RequiresStores(t *testing.T) {
	_, err := (&Scheduler{}).Reconcile(context.Background(), sunday)
	assert.Error(t, err)
}

func TestRun_RevertsUntilCancelled(t *testing.T) {
	repo := NewMemoryRepo()
	mustSet(repo, "r1", 388, sunday.AddDate(0, 0, -3))

	s := NewScheduler(repo, repo, time.UTC)
	s.Now = func() time.Time { return sunday.Add(time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		b, _ := repo.Boundary(context.Background())
		return b.Equal(sunday)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	_, ok, _ := repo.Get(context.Background(), "r1")
	assert.False(t, ok)
}
