package port

import (
	"context"
	"time"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
)

// SessionStore deals with durable session records and their rotation state.
//
// RotateRefreshHash must be linearizable per session: the backing store
// compares the presented hash against the stored current hash in the same
// write, so two concurrent rotations cannot both succeed. A zero-row update
// surfaces as ErrStaleRotation and the caller classifies the failure.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	RotateRefreshHash(ctx context.Context, sessionID, presentedHash, newHash string, at time.Time) (int64, error)
	Revoke(ctx context.Context, sessionID, reason string, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
