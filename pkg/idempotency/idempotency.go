// Package idempotency remembers submission tokens so a retried create does
// not register the same asset twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight is returned when another request holds the same token.
var ErrInFlight = errors.New("submission already in progress")

// pending marks a reserved token whose submission has not finished.
const pending = "\x00pending"

// pendingLease bounds how long an unfinished reservation blocks retries when
// tokens are otherwise kept forever, so a crashed submission can be redone.
const pendingLease = 10 * time.Minute

func reserveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return pendingLease
	}
	return ttl
}

// Store tracks submission tokens.
type Store interface {
	// Reserve claims token. If the token already completed, the recorded
	// result is returned with reserved=false.
	Reserve(ctx context.Context, token string) (result string, reserved bool, err error)
	// Complete records the result for a reserved token.
	Complete(ctx context.Context, token, result string) error
	// Release forgets a reserved token so the submission can be retried.
	Release(ctx context.Context, token string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// NewMemoryStore returns a MemoryStore keeping tokens for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Reserve(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[token]; ok && now.Before(e.expires) {
		if e.value == pending {
			return "", false, ErrInFlight
		}
		return e.value, false, nil
	}
	s.entries[token] = memoryEntry{value: pending, expires: now.Add(s.ttl)}
	return "", true, nil
}

func (s *MemoryStore) Complete(_ context.Context, token, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{value: result, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// RedisStore keeps tokens in Redis so retries landing on another registry
// process are recognised too.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore namespacing keys under prefix. A ttl of
// zero keeps completed tokens forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

func (s *RedisStore) Reserve(ctx context.Context, token string) (string, bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(token), pending, reserveTTL(s.ttl)).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve token: %w", err)
	}
	if ok {
		return "", true, nil
	}
	value, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; treat as a fresh claim.
			return s.Reserve(ctx, token)
		}
		return "", false, fmt.Errorf("read token: %w", err)
	}
	if value == pending {
		return "", false, ErrInFlight
	}
	return value, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, token, result string) error {
	if err := s.client.Set(ctx, s.key(token), result, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete token: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("release token: %w", err)
	}
	return nil
}
