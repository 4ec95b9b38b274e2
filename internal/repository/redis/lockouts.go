package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
)

// LockoutRepository persists timed lockouts as plain keys carrying the lock
// reason, expiring with the lockout duration. Expiry is handled by Redis, so
// a lapsed lockout is simply absent.
type LockoutRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewLockoutRepository constructs a repository using the provided client.
func NewLockoutRepository(client *redis.Client, keyPrefix string) *LockoutRepository {
	return &LockoutRepository{client: client, keyPrefix: keyPrefix}
}

// Lock records a lockout for the subject lasting ttl.
func (r *LockoutRepository) Lock(ctx context.Context, subject, reason string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	if err := r.client.Set(ctx, r.key(subject), reason, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// IsLocked reports whether the subject is locked, with the remaining
// duration and the recorded reason.
func (r *LockoutRepository) IsLocked(ctx context.Context, subject string) (bool, time.Duration, string, error) {
	key := r.key(subject)

	reason, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, 0, "", nil
	}
	if err != nil {
		return false, 0, "", fmt.Errorf("redis get: %w", err)
	}

	remaining, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, "", fmt.Errorf("redis ttl: %w", err)
	}
	if remaining < 0 {
		remaining = 0
	}

	return true, remaining, reason, nil
}

// Unlock removes the subject's lockout before its natural expiry.
func (r *LockoutRepository) Unlock(ctx context.Context, subject string) error {
	if err := r.client.Del(ctx, r.key(subject)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *LockoutRepository) key(subject string) string {
	if r.keyPrefix == "" {
		return subject
	}
	return fmt.Sprintf("%s:%s", r.keyPrefix, subject)
}

var _ port.LockStore = (*LockoutRepository)(nil)
