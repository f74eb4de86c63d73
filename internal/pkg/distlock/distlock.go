package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
	// Extend pushes out the expiry of a held lock. Backends without a TTL
	// only confirm ownership.
	Extend(ctx context.Context, ttl time.Duration) error
}

// ErrLockLost is returned by Extend when the lock is no longer held.
var ErrLockLost = errors.New("lock no longer held")

// NewLock creates a distributed lock using the best available backend.
// If redisClient is non-nil, uses Redis (preferred for cross-host locking).
// Otherwise falls back to PostgreSQL advisory locks when db is a Postgres
// handle, and to an in-process lock when db is nil.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	if db != nil {
		return NewPGAdvisoryLock(db, key)
	}
	return NewLocalLock(key)
}

// Wait polls Acquire every interval until the lock is held or ctx is done.
func Wait(ctx context.Context, l DistLock, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		ok, err := l.Acquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for lock: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// KeepAlive extends l every ttl/2 until the returned stop func is called or
// ctx is done. Extend failures go to onErr. stop waits for the refresher to
// exit.
func KeepAlive(ctx context.Context, l DistLock, ttl time.Duration, onErr func(error)) (stop func()) {
	if ttl <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(max(ttl/2, time.Millisecond))
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := l.Extend(ctx, ttl); err != nil && ctx.Err() == nil && onErr != nil {
					onErr(err)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// =============================================================================
// In-process lock (single instance deployments without Redis or Postgres)
// =============================================================================

var localHeld sync.Map

// LocalLock implements DistLock within one process.
type LocalLock struct {
	key   string
	token *struct{}
}

// NewLocalLock creates an in-process lock for key.
func NewLocalLock(key string) *LocalLock {
	return &LocalLock{key: key, token: new(struct{})}
}

// Acquire tries to take the lock without blocking.
func (l *LocalLock) Acquire(_ context.Context) (bool, error) {
	holder, loaded := localHeld.LoadOrStore(l.key, l.token)
	return !loaded || holder == l.token, nil
}

// Extend confirms the lock is still held; local locks never expire.
func (l *LocalLock) Extend(_ context.Context, _ time.Duration) error {
	if holder, ok := localHeld.Load(l.key); !ok || holder != l.token {
		return fmt.Errorf("%w: %s", ErrLockLost, l.key)
	}
	return nil
}

// Release drops the lock if this instance holds it.
func (l *LocalLock) Release(_ context.Context) error {
	localHeld.CompareAndDelete(l.key, l.token)
	return nil
}

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// Uses pg_try_advisory_lock / pg_advisory_unlock which are session-scoped.
// The lock is automatically released if the DB connection drops, providing
// crash-safety similar to Redis TTL expiration.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
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

// Acquire tries to acquire the advisory lock. Returns true if successful.
// Uses pg_try_advisory_lock which returns immediately (non-blocking).
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

// Release releases the advisory lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

// Extend is a no-op: advisory locks live as long as the session.
func (l *PGAdvisoryLock) Extend(_ context.Context, _ time.Duration) error {
	return nil
}
