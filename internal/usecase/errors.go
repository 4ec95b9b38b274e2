package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
)

var (
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionInactive indicates the session has been revoked or expired
	// and accepts no further rotation or activity.
	ErrSessionInactive = errors.New("session inactive")
	// ErrCredentialReuseDetected indicates a rotation attempt presented a
	// stale (already rotated past) refresh credential. The session is dead
	// by the time this error is returned.
	ErrCredentialReuseDetected = errors.New("credential reuse detected")
	// ErrCredentialInvalid covers malformed, badly signed and wrong-type
	// credentials. Callers see one uniform failure; logs carry the detail.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrCredentialExpired is the internal kind for an elapsed credential.
	// It maps to the same caller-visible failure as ErrCredentialInvalid.
	ErrCredentialExpired = errors.New("credential expired")
)

// LockoutError is returned when a locked subject attempts authentication.
// It carries the remaining lockout duration for a retry-after response
// without revealing which credential check would have failed.
type LockoutError struct {
	Kind      domain.LockSubjectKind
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s locked out for %s", e.Kind, e.Remaining)
}

// IsAuthFailure reports whether err should surface to the caller as a
// uniform authentication failure.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionInactive) ||
		errors.Is(err, ErrCredentialReuseDetected) ||
		errors.Is(err, ErrCredentialInvalid) ||
		errors.Is(err, ErrCredentialExpired)
}
