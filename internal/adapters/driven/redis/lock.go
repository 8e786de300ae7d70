package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "sercha-wiki:lock:"

// Lock implements DistributedLock using Redis SET NX with TTL.
// Each instance has its own owner ID, so one replica can never release or
// extend a lock another replica holds.
type Lock struct {
	client  redis.UniversalClient
	ownerID string
}

// NewLock creates a new Redis-backed distributed lock.
func NewLock(client redis.UniversalClient) *Lock {
	return &Lock{
		client:  client,
		ownerID: generateOwnerID(),
	}
}

// generateOwnerID returns hostname:pid:random.
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

// Acquire takes the lock if nobody holds it. A lock already held, even by
// this instance, is not re-entered.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("%w: lock ttl must be positive", domain.ErrInvalidInput)
	}
	ok, err := l.client.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// releaseScript deletes the key only while it still holds our owner ID.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release gives the lock back if this instance holds it.
// Safe to call when the lock has expired or belongs to someone else.
func (l *Lock) Release(ctx context.Context, name string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Extend pushes out the expiry of a lock this instance holds. It returns
// domain.ErrLockHeld when the lock has expired or passed to another holder.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockHeld)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this instance in lock values.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
