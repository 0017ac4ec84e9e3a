package driven

import (
	"context"
	"time"
)

// DistributedLock provides short leases for coordinating work across
// instances. The aggregate dispatcher holds a per-(kb, kind) lease
// around its check-then-set of the pipeline task pointer so concurrent
// dispatch requests cannot both pass the terminal-state check.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held by another instance.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock.
	// Best-effort; locks auto-expire after TTL anyway. Safe to call even
	// if the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
