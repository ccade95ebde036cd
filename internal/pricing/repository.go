package pricing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/RajAbey68/ko-lake-villa-website-sub007/pkg/utils"

	"github.com/shopspring/decimal"
)

// NOTE: This repository assumes the tables created by Migrate exist.
// Prices are stored as NUMERIC(12,2); scanning goes through decimal.Decimal
// so no float formatting happens in SQL.

var schema = []string{
	`CREATE TABLE IF NOT EXISTS room_price_overrides (
  room_id TEXT PRIMARY KEY,
  price   NUMERIC(12,2) NOT NULL CHECK (price >= 0),
  set_at  TIMESTAMPTZ NOT NULL,
  set_by  TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS pricing_week_boundary (
  id       SMALLINT PRIMARY KEY CHECK (id = 1),
  boundary TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS room_rates (
  room_id     TEXT PRIMARY KEY,
  weekly_rate NUMERIC(12,2) NOT NULL DEFAULT 0,
  daily_rates JSONB NOT NULL DEFAULT '{}'::jsonb
)`,
}

// Migrate creates the pricing tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	return utils.WithTx(ctx, db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// PostgresRepo implements OverrideStore and BoundaryStore on Postgres.
// Every write is a single statement, which gives per-key atomicity for Set
// and a single-snapshot ClearAll.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Set(ctx context.Context, o Override) error {
	const q = `
INSERT INTO room_price_overrides (room_id, price, set_at, set_by)
VALUES ($1, $2, $3, $4)
ON CONFLICT (room_id)
DO UPDATE SET price = EXCLUDED.price,
              set_at = EXCLUDED.set_at,
              set_by = EXCLUDED.set_by
`
	_, err := r.db.ExecContext(ctx, q,
		o.RoomID,
		decimal.NewFromFloat(o.Price).Round(2),
		o.SetAt.UTC(),
		o.SetBy,
	)
	return persistenceErr("set override", err)
}

func (r *PostgresRepo) Get(ctx context.Context, roomID string) (Override, bool, error) {
	const q = `
SELECT room_id, price, set_at, set_by
FROM room_price_overrides
WHERE room_id = $1
`
	var (
		o     Override
		price decimal.Decimal
	)
	err := r.db.QueryRowContext(ctx, q, roomID).Scan(&o.RoomID, &price, &o.SetAt, &o.SetBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Override{}, false, nil
		}
		return Override{}, false, persistenceErr("get override", err)
	}
	o.Price = price.InexactFloat64()
	return o, true, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, roomID string) error {
	const q = `DELETE FROM room_price_overrides WHERE room_id = $1`
	_, err := r.db.ExecContext(ctx, q, roomID)
	return persistenceErr("delete override", err)
}

func (r *PostgresRepo) List(ctx context.Context) (map[string]Override, error) {
	const q = `
SELECT room_id, price, set_at, set_by
FROM room_price_overrides
ORDER BY room_id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, persistenceErr("list overrides", err)
	}
	defer rows.Close()

	out := make(map[string]Override)
	for rows.Next() {
		var (
			o     Override
			price decimal.Decimal
		)
		if err := rows.Scan(&o.RoomID, &price, &o.SetAt, &o.SetBy); err != nil {
			return nil, persistenceErr("list overrides", err)
		}
		o.Price = price.InexactFloat64()
		out[o.RoomID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list overrides", err)
	}
	return out, nil
}

func (r *PostgresRepo) ClearAll(ctx context.Context, before time.Time) (int, error) {
	// Rows stamped in the new week are kept even if they commit mid-delete.
	const q = `DELETE FROM room_price_overrides WHERE set_at < $1`
	res, err := r.db.ExecContext(ctx, q, before.UTC())
	if err != nil {
		return 0, persistenceErr("clear overrides", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, persistenceErr("clear overrides", err)
	}
	return int(n), nil
}

func (r *PostgresRepo) Boundary(ctx context.Context) (time.Time, error) {
	const q = `SELECT boundary FROM pricing_week_boundary WHERE id = 1`
	var b time.Time
	if err := r.db.QueryRowContext(ctx, q).Scan(&b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, persistenceErr("read week boundary", err)
	}
	return b, nil
}

func (r *PostgresRepo) AdvanceBoundary(ctx context.Context, to time.Time) (bool, error) {
	// The WHERE on the conflict branch keeps the boundary monotonic.
	const q = `
INSERT INTO pricing_week_boundary (id, boundary)
VALUES (1, $1)
ON CONFLICT (id)
DO UPDATE SET boundary = EXCLUDED.boundary
WHERE pricing_week_boundary.boundary < EXCLUDED.boundary
`
	res, err := r.db.ExecContext(ctx, q, to.UTC())
	if err != nil {
		return false, persistenceErr("advance week boundary", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistenceErr("advance week boundary", err)
	}
	return n > 0, nil
}

// PostgresCatalog reads room reference rates from the room_rates table.
// The table is owned by the content side of the site; this code only reads it.
type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) Room(ctx context.Context, roomID string) (Room, bool, error) {
	const q = `
SELECT room_id, weekly_rate, daily_rates
FROM room_rates
WHERE room_id = $1
`
	rm, err := scanRoom(c.db.QueryRowContext(ctx, q, roomID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Room{}, false, nil
		}
		return Room{}, false, persistenceErr("get room rates", err)
	}
	return rm, true, nil
}

func (c *PostgresCatalog) Rooms(ctx context.Context) ([]Room, error) {
	const q = `
SELECT room_id, weekly_rate, daily_rates
FROM room_rates
ORDER BY room_id
`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, persistenceErr("list room rates", err)
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, persistenceErr("list room rates", err)
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list room rates", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(s rowScanner) (Room, error) {
	var (
		rm     Room
		weekly decimal.Decimal
		daily  []byte
	)
	if err := s.Scan(&rm.ID, &weekly, &daily); err != nil {
		return Room{}, err
	}
	rm.WeeklyRate = weekly.InexactFloat64()
	if len(daily) > 0 {
		// A malformed daily_rates column degrades to the weekly figure.
		if err := json.Unmarshal(daily, &rm.DailyRates); err != nil {
			rm.DailyRates = nil
		}
	}
	return rm, nil
}

var (
	_ OverrideStore = (*PostgresRepo)(nil)
	_ BoundaryStore = (*PostgresRepo)(nil)
	_ RateSource    = (*PostgresCatalog)(nil)
)
