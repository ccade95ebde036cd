package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "pricing"
	overridesKey       = "overrides"
	boundaryKey        = "week_boundary"
)

var advanceBoundaryScript = redis.NewScript(`
-- KEYS[1] = boundary key
-- ARGV[1] = candidate boundary (unix ms)
--
-- Returns:
--  1 if the boundary moved forward
--  0 if the stored boundary is already at or past the candidate
local current = tonumber(redis.call('GET', KEYS[1]) or '-1')
local candidate = tonumber(ARGV[1])
if current == nil or candidate > current then
  redis.call('SET', KEYS[1], ARGV[1])
  return 1
end
return 0
`)

var clearBeforeScript = redis.NewScript(`
-- KEYS[1] = overrides hash
-- ARGV[1] = cutoff (unix ms)
--
-- Deletes fields whose set_at_ms is before the cutoff. Unreadable values are
-- deleted too. Returns the number of fields removed.
local cutoff = tonumber(ARGV[1])
local fields = redis.call('HGETALL', KEYS[1])
local removed = 0
for i = 1, #fields, 2 do
  local ok, o = pcall(cjson.decode, fields[i + 1])
  local at = nil
  if ok and type(o) == 'table' then
    at = tonumber(o['set_at_ms'])
  end
  if at == nil or at < cutoff then
    redis.call('HDEL', KEYS[1], fields[i])
    removed = removed + 1
  end
end
return removed
`)

// RedisRepo implements OverrideStore and BoundaryStore on Redis.
//
// Layout:
// - <prefix>:overrides      hash, field = room id, value = JSON override
// - <prefix>:week_boundary  string, unix milliseconds
//
// HSET is atomic per field; ClearAll is one Lua script, so no HSET lands
// halfway through it.
type RedisRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRepo(rdb *redis.Client, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepo{rdb: rdb, prefix: prefix}
}

type redisOverride struct {
	Price float64 `json:"price"`
	SetAt int64   `json:"set_at_ms"`
	SetBy string  `json:"set_by,omitempty"`
}

func (r *RedisRepo) key(name string) string { return r.prefix + ":" + name }

func (r *RedisRepo) Set(ctx context.Context, o Override) error {
	raw, err := json.Marshal(redisOverride{
		Price: round2(o.Price).InexactFloat64(),
		SetAt: o.SetAt.UnixMilli(),
		SetBy: o.SetBy,
	})
	if err != nil {
		return persistenceErr("set override", err)
	}
	return persistenceErr("set override", r.rdb.HSet(ctx, r.key(overridesKey), o.RoomID, raw).Err())
}

func (r *RedisRepo) Get(ctx context.Context, roomID string) (Override, bool, error) {
	raw, err := r.rdb.HGet(ctx, r.key(overridesKey), roomID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Override{}, false, nil
		}
		return Override{}, false, persistenceErr("get override", err)
	}
	o, err := decodeRedisOverride(roomID, raw)
	if err != nil {
		return Override{}, false, persistenceErr("get override", err)
	}
	return o, true, nil
}

func (r *RedisRepo) Delete(ctx context.Context, roomID string) error {
	return persistenceErr("delete override", r.rdb.HDel(ctx, r.key(overridesKey), roomID).Err())
}

func (r *RedisRepo) List(ctx context.Context) (map[string]Override, error) {
	all, err := r.rdb.HGetAll(ctx, r.key(overridesKey)).Result()
	if err != nil {
		return nil, persistenceErr("list overrides", err)
	}
	out := make(map[string]Override, len(all))
	for roomID, raw := range all {
		o, err := decodeRedisOverride(roomID, []byte(raw))
		if err != nil {
			return nil, persistenceErr("list overrides", err)
		}
		out[roomID] = o
	}
	return out, nil
}

func (r *RedisRepo) ClearAll(ctx context.Context, before time.Time) (int, error) {
	n, err := clearBeforeScript.Run(ctx, r.rdb, []string{r.key(overridesKey)}, before.UnixMilli()).Int()
	if err != nil {
		return 0, persistenceErr("clear overrides", err)
	}
	return n, nil
}

func (r *RedisRepo) Boundary(ctx context.Context) (time.Time, error) {
	raw, err := r.rdb.Get(ctx, r.key(boundaryKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, persistenceErr("read week boundary", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, persistenceErr("read week boundary", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (r *RedisRepo) AdvanceBoundary(ctx context.Context, to time.Time) (bool, error) {
	res, err := advanceBoundaryScript.Run(ctx, r.rdb, []string{r.key(boundaryKey)}, to.UnixMilli()).Int()
	if err != nil {
		return false, persistenceErr("advance week boundary", err)
	}
	return res == 1, nil
}

func decodeRedisOverride(roomID string, raw []byte) (Override, error) {
	var v redisOverride
	if err := json.Unmarshal(raw, &v); err != nil {
		return Override{}, err
	}
	return Override{
		RoomID: roomID,
		Price:  v.Price,
		SetAt:  time.UnixMilli(v.SetAt).UTC(),
		SetBy:  v.SetBy,
	}, nil
}

var (
	_ OverrideStore = (*RedisRepo)(nil)
	_ BoundaryStore = (*RedisRepo)(nil)
)
