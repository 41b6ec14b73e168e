// Package lock serialises registry writes. A Redis-backed lock covers
// several registry processes sharing one store; the local lock covers a
// single process.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out an exclusive write section.
type Locker interface {
	// Acquire blocks until the lock is held or the attempt times out.
	// The returned token is passed back to Release.
	Acquire(ctx context.Context) (string, error)
	Release(ctx context.Context, token string) error
}

// DistributedLock implements a global exclusive lock backed by Redis.
type DistributedLock struct {
	client         *redis.Client
	lockKey        string
	lockTTL        time.Duration
	acquireTimeout time.Duration
}

// NewDistributed creates a DistributedLock.
//   - key: the Redis key used for the lock (e.g. "park_registry:write_lock")
//   - ttl: how long the lock is held before auto-expiry (prevents deadlock)
//   - acquireTimeout: max time to wait when trying to acquire the lock
func NewDistributed(client *redis.Client, key string, ttl, acquireTimeout time.Duration) *DistributedLock {
	return &DistributedLock{
		client:         client,
		lockKey:        key,
		lockTTL:        ttl,
		acquireTimeout: acquireTimeout,
	}
}

// Acquire attempts to obtain the lock with exponential backoff capped at 500ms.
func (l *DistributedLock) Acquire(ctx context.Context) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.acquireTimeout)
	backoff := 50 * time.Millisecond

	for {
		ok, err := l.client.SetNX(ctx, l.lockKey, token, l.lockTTL).Result()
		if err != nil {
			return "", fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("timeout acquiring write lock after %s", l.acquireTimeout)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > 500*time.Millisecond {
			backoff = 500 * time.Millisecond
		}
	}
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Release releases the lock only if it is still owned by token.
func (l *DistributedLock) Release(ctx context.Context, token string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.lockKey}, token).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// LocalLock is an in-process Locker with the same timeout semantics.
type LocalLock struct {
	sem            chan struct{}
	acquireTimeout time.Duration

	mu    sync.Mutex
	owner string
}

// NewLocal creates a LocalLock.
func NewLocal(acquireTimeout time.Duration) *LocalLock {
	return &LocalLock{sem: make(chan struct{}, 1), acquireTimeout: acquireTimeout}
}

// Acquire waits for the lock, the timeout or ctx, whichever comes first.
func (l *LocalLock) Acquire(ctx context.Context) (string, error) {
	timer := time.NewTimer(l.acquireTimeout)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
	case <-timer.C:
		return "", fmt.Errorf("timeout acquiring write lock after %s", l.acquireTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	token := uuid.NewString()
	l.mu.Lock()
	l.owner = token
	l.mu.Unlock()
	return token, nil
}

// Release frees the lock if token still owns it.
func (l *LocalLock) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != token {
		return nil
	}
	l.owner = ""
	<-l.sem
	return nil
}
