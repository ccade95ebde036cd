package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*miniredis.Miniredis, *RedisRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisRepo(rdb, "")
}

func TestRedisRepo_OverrideCRUD(t *testing.T) {
	ctx := context.Background()
	mr, repo := newRedisRepo(t)

	setAt := sunday.Add(36 * time.Hour)
	require.NoError(t, repo.Set(ctx, Override{RoomID: "garden", Price: 82.499, SetAt: setAt, SetBy: "owner"}))
	assert.True(t, mr.Exists("pricing:overrides"))

	o, ok, err := repo.Get(ctx, "garden")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 82.5, o.Price)
	assert.True(t, o.SetAt.Equal(setAt))
	assert.Equal(t, "owner", o.SetBy)

	_, ok, err = repo.Get(ctx, "lakeside")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, Override{RoomID: "lakeside", Price: 388, SetAt: setAt}))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "lakeside", all["lakeside"].RoomID)

	require.NoError(t, repo.Delete(ctx, "garden"))
	_, ok, _ = repo.Get(ctx, "garden")
	assert.False(t, ok)
}

func TestRedisRepo_ClearAll(t *testing.T) {
	ctx := context.Background()
	mr, repo := newRedisRepo(t)
	mustSet(repo, "a", 1, sunday)
	mustSet(repo, "b", 2, sunday)

	n, err := repo.ClearAll(ctx, sunday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("pricing:overrides"))

	n, err = repo.ClearAll(ctx, sunday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisRepo_ClearAllKeepsNewWeekOverrides(t *testing.T) {
	ctx := context.Background()
	mr, repo := newRedisRepo(t)
	next := sunday.AddDate(0, 0, 7)
	mustSet(repo, "old", 1, next.Add(-time.Millisecond))
	mustSet(repo, "fresh", 2, next)
	mr.HSet("pricing:overrides", "garbled", "not json")

	n, err := repo.ClearAll(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "stale and unreadable entries are removed")

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2.0, all["fresh"].Price)
}

func TestRedisRepo_BoundaryIsMonotonic(t *testing.T) {
	ctx := context.Background()
	_, repo := newRedisRepo(t)

	b, err := repo.Boundary(ctx)
	require.NoError(t, err)
	assert.True(t, b.IsZero())

	moved, err := repo.AdvanceBoundary(ctx, sunday)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.AdvanceBoundary(ctx, sunday.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = repo.AdvanceBoundary(ctx, sunday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.True(t, moved)

	b, err = repo.Boundary(ctx)
	require.NoError(t, err)
	assert.True(t, b.Equal(sunday.AddDate(0, 0, 7)))
}

func TestRedisRepo_CorruptValues(t *testing.T) {
	ctx := context.Background()
	mr, repo := newRedisRepo(t)

	mr.HSet("pricing:overrides", "garden", "not json")
	_, _, err := repo.Get(ctx, "garden")
	var pe *PersistenceError
	assert.ErrorAs(t, err, &pe)

	require.NoError(t, mr.Set("pricing:week_boundary", "yesterday"))
	_, err = repo.Boundary(ctx)
	assert.ErrorAs(t, err, &pe)
}

func TestRedisRepo_UnavailableIsPersistenceError(t *testing.T) {
	mr, repo := newRedisRepo(t)
	mr.Close()

	_, _, err := repo.Get(context.Background(), "garden")
	var pe *PersistenceError
	assert.ErrorAs(t, err, &pe)
}

func TestRedisRepo_ServesSchedulerRevert(t *testing.T) {
	ctx := context.Background()
	mr, repo := newRedisRepo(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewScheduler(repo, repo, time.UTC)
	mustSet(repo, "garden", 80, sunday.AddDate(0, 0, -3))

	reverted, err := s.Reconcile(ctx, sunday.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, reverted)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	raw, err := rdb.Get(ctx, "pricing:week_boundary").Result()
	require.NoError(t, err)
	assert.Equal(t, "1717286400000", raw)
}
