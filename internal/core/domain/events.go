package domain

import "time"

// SessionRevokedEvent is published when a session is terminated, whether by
// logout, explicit invalidation, or credential-reuse detection.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RevokedAt time.Time
	Reason    string
	IP        *string
	Metadata  map[string]any
}

// AccountLockedEvent is published when the brute-force guard locks a subject.
type AccountLockedEvent struct {
	EventID     string
	Subject     string
	Kind        LockSubjectKind
	LockedAt    time.Time
	LockedUntil time.Time
	Reason      string
	Attempts    int
}

// SecurityAlertEvent is published when risk scoring escalates to high or
// critical for a user.
type SecurityAlertEvent struct {
	EventID    string
	UserID     string
	Level      RiskLevel
	Score      int
	Factors    []string
	Actions    []RiskAction
	AssessedAt time.Time
}

// PreferencesChangedEvent travels the in-process bus from preference-mutation
// call sites to the prayer scheduler's subscriber.
type PreferencesChangedEvent struct {
	UserID    string
	ChangedAt time.Time
}
