package domain

import "time"

// LockSubjectKind distinguishes the two independently locked subjects.
type LockSubjectKind string

const (
	LockSubjectUser LockSubjectKind = "user"
	LockSubjectIP   LockSubjectKind = "ip"
)

// Lockout is an authoritative timed lock on a user or IP. It is treated as
// absent once LockedUntil passes (lazy expiry).
type Lockout struct {
	Subject     string
	Kind        LockSubjectKind
	LockedAt    time.Time
	LockedUntil time.Time
	Reason      string
}

// Remaining returns how long the lockout still holds at the supplied moment.
func (l Lockout) Remaining(at time.Time) time.Duration {
	if !l.LockedUntil.After(at) {
		return 0
	}
	return l.LockedUntil.Sub(at)
}

// AttemptResult reports counter and lock state after a failed attempt is
// recorded, so the caller can decide the response shape.
type AttemptResult struct {
	UserAttempts int
	IPAttempts   int
	UserLocked   bool
	IPLocked     bool
	RetryAfter   time.Duration
}
