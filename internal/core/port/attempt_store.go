package port

import (
	"context"
	"time"
)

// AttemptStore persists sliding-window attempt timestamps per subject
// (user id or ip). Window-expired entries are trimmed lazily on read.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	ClearAttempts(ctx context.Context, identifier string) error
}

// LockStore persists timed lockouts. A lockout is authoritative until its
// TTL elapses; afterwards it is treated as absent.
type LockStore interface {
	Lock(ctx context.Context, subject, reason string, ttl time.Duration) error
	IsLocked(ctx context.Context, subject string) (bool, time.Duration, string, error)
	Unlock(ctx context.Context, subject string) error
}
