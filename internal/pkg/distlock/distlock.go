// Package distlock keeps two scheduled runs of the same job from overlapping.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
)

// ErrHeld is returned by Run when another process owns the lock.
var ErrHeld = errors.New("distlock: lock held by another run")

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock picks the best available backend for key: Redis when a client is
// given, a PostgreSQL advisory lock when db is a postgres pool, otherwise a
// lock that always succeeds.
func NewLock(redisClient *redis.Client, db *sql.DB, driver, key string, ttl time.Duration) DistLock {
	switch {
	case redisClient != nil:
		return NewRedisLock(redisClient, key, ttl)
	case db != nil && driver == "postgres":
		return NewPGAdvisoryLock(db, key)
	default:
		logger.Warn("no lock backend configured, overlapping runs are not prevented", "key", key)
		return noopLock{}
	}
}

// Run holds l for the duration of fn. It returns ErrHeld without calling fn
// when the lock is taken. Release failures are logged, not returned.
func Run(ctx context.Context, l DistLock, fn func(context.Context) error) error {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	defer func() {
		// The run context may already be cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.Release(rctx); err != nil {
			logger.Error("failed to release run lock", "error", err)
		}
	}()
	return fn(ctx)
}

type noopLock struct{}

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// pg_try_advisory_lock is session-scoped, so the lock pins one pooled
// connection from Acquire until Release. If the process dies the session
// ends and PostgreSQL drops the lock.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	if l.conn != nil {
		return false, errors.New("distlock: advisory lock already acquired")
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("reserve lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks on the session that took the lock and returns the
// connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
