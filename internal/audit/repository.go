package audit

import (
	"context"
	"database/sql"
	"time"
)

const createTable = `
CREATE TABLE IF NOT EXISTS audit_events (
  id            UUID PRIMARY KEY,
  type          TEXT NOT NULL,
  actor_user_id TEXT NOT NULL DEFAULT '',
  actor_role    TEXT NOT NULL DEFAULT '',
  ip_address    TEXT NOT NULL DEFAULT '',
  room_id       TEXT NOT NULL DEFAULT '',
  price         NUMERIC(12,2),
  message       TEXT NOT NULL DEFAULT '',
  metadata      JSONB,
  created_at    TIMESTAMPTZ NOT NULL
)`

// PostgresRepo appends audit events to audit_events. It never updates or deletes.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Migrate creates audit_events if it does not exist.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createTable)
	return err
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, actor_user_id, actor_role, ip_address, room_id, price, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	var metadata any
	if e.Metadata != "" {
		metadata = e.Metadata
	}
	var price any
	if e.Price != nil {
		price = *e.Price
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.RoomID,
		price,
		e.Message,
		metadata,
		e.CreatedAt.UTC(),
	)
	return err
}

// ListBetween returns events with from <= created_at < to, oldest first.
func (r *PostgresRepo) ListBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	const q = `
SELECT id, type, actor_user_id, actor_role, ip_address, room_id, price, message, metadata, created_at
FROM audit_events
WHERE created_at >= $1 AND created_at < $2
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e        Event
			typ      string
			price    sql.NullFloat64
			metadata sql.NullString
		)
		if err := rows.Scan(&e.ID, &typ, &e.ActorUserID, &e.ActorRole, &e.IPAddress, &e.RoomID, &price, &e.Message, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		if price.Valid {
			p := price.Float64
			e.Price = &p
		}
		e.Metadata = metadata.String
		out = append(out, e)
	}
	return out, rows.Err()
}

var (
	_ Repository = (*PostgresRepo)(nil)
	_ Repository = (*MemoryRepo)(nil)
)
