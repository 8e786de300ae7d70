package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work that only one replica may do at a time,
// such as rebuilding the whole index.
type DistributedLock interface {
	// Acquire attempts to take the named lock for ttl.
	// Returns false, nil when another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives the lock back. Safe to call when the lock has expired.
	Release(ctx context.Context, name string) error

	// Extend pushes out the expiry of a lock this process holds.
	// PostgreSQL advisory locks have no TTL and treat this as a no-op.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
