package domain

import "time"

// DeviceInfo carries the coarse device classification captured at login.
// Browser and OS are intentionally approximate (pattern matched, not parsed).
type DeviceInfo struct {
	Fingerprint string
	Platform    string
	Browser     string
	OS          string
}

// Session represents a persisted authenticated browser/device relationship
// with a user, independent of any single bearer credential.
type Session struct {
	ID           string
	UserID       string
	IP           string
	UserAgent    string
	Device       DeviceInfo
	RememberMe   bool
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	Active       bool
	RevokedAt    *time.Time
	RevokeReason *string

	// Rotation state. CurrentRefreshHash must match the hash of the
	// last-issued refresh credential for the session to be rotatable.
	CurrentRefreshHash  string
	PreviousRefreshHash string
	RefreshVersion      int64
	RefreshRotatedAt    time.Time
}

// IsActive reports whether the session still accepts rotation and activity
// at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	if !s.Active || s.RevokedAt != nil {
		return false
	}
	return s.ExpiresAt.After(at)
}

// Revoke marks the session inactive. Returns true when the session changed
// state, false when it was already revoked.
func (s *Session) Revoke(at time.Time, reason string) bool {
	if !s.Active && s.RevokedAt != nil {
		return false
	}
	s.Active = false
	atCopy := at
	s.RevokedAt = &atCopy
	reasonCopy := reason
	s.RevokeReason = &reasonCopy
	return true
}

// Touch updates last-activity metadata when an authenticated request arrives.
func (s *Session) Touch(at time.Time) {
	s.LastActivity = at
}

// SessionSummary is the redacted per-session view exposed for display and
// audit. Refresh hashes never leave the store through this type.
type SessionSummary struct {
	ID           string
	IP           string
	Device       DeviceInfo
	RememberMe   bool
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
}

// SessionStats aggregates a user's active sessions partitioned by the
// remember-me flag.
type SessionStats struct {
	Total       int
	Persistent  int
	SessionOnly int
	Sessions    []SessionSummary
}
