package database

import (
	"context"
	"fmt"
	"hash/fnv"
)

// LockKey derives the Postgres advisory lock key guarding name, typically a
// tracking table. Processes migrating the same table contend for one key.
func LockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))

	return int64(h.Sum64()) //nolint:gosec // wraparound is fine for a lock key
}

// LockHandle is a session-level advisory lock held by one connection. The
// lock lives until Release or until that connection's session ends.
type LockHandle struct {
	conn Execer
	key  int64
}

// TryAcquireLock takes the advisory lock for key on conn without waiting. It
// returns ErrLockNotAcquired when another session holds it.
//
// conn must be a single session (*Conn or *sql.Conn), never a *sql.DB: the
// unlock has to run on the session that locked.
func TryAcquireLock(ctx context.Context, conn Execer, key int64) (*LockHandle, error) {
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		return nil, fmt.Errorf("pg_try_advisory_lock(%d): %w", key, err)
	}

	if !acquired {
		return nil, fmt.Errorf("%w: key %d", ErrLockNotAcquired, key)
	}

	return &LockHandle{conn: conn, key: key}, nil
}

// Release unlocks. Nil handles and repeated calls are no-ops.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	conn := h.conn
	h.conn = nil

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", h.key); err != nil {
		return fmt.Errorf("releasing advisory lock %d: %w", h.key, err)
	}

	return nil
}
