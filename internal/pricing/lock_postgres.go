package pricing

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PostgresLocker serializes the revert across instances sharing one
// database, using session-level advisory locks.
//
// An advisory lock belongs to a connection, so each held lock pins one
// *sql.Conn from the pool until Release. If the process dies the session
// ends and Postgres frees the lock; the ttl argument is not needed.
type PostgresLocker struct {
	db *sql.DB

	mu   sync.Mutex
	held map[string]*sql.Conn
}

func NewPostgresLocker(db *sql.DB) *PostgresLocker {
	return &PostgresLocker{db: db, held: make(map[string]*sql.Conn)}
}

func (l *PostgresLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	_ = ttl
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return "", false, err
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, advisoryKey(key)).Scan(&ok); err != nil {
		_ = conn.Close()
		return "", false, err
	}
	if !ok {
		_ = conn.Close()
		return "", false, nil
	}

	token := uuid.NewString()
	l.mu.Lock()
	l.held[token] = conn
	l.mu.Unlock()
	return token, true, nil
}

func (l *PostgresLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	conn, ok := l.held[token]
	delete(l.held, token)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	defer conn.Close()

	_, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, advisoryKey(key))
	return err
}

// advisoryKey maps a lock name onto Postgres' int8 advisory key space.
func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

var _ Locker = (*PostgresLocker)(nil)
