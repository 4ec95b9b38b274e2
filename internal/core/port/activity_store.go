package port

import (
	"context"
	"time"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
)

// ActivityStore retains the bounded, time-windowed activity history risk
// scoring is computed from. Append enforces both the retention window and
// the entry cap on write.
type ActivityStore interface {
	Append(ctx context.Context, activity domain.Activity, retention time.Duration, maxEntries int) error
	ListWindow(ctx context.Context, userID string, window time.Duration, reference time.Time) ([]domain.Activity, error)
}

// DeviceStore tracks the bounded set of recently seen device fingerprints
// per user, evicted least-recently-seen first and expired after the
// retention window.
type DeviceStore interface {
	Upsert(ctx context.Context, userID string, record domain.FingerprintRecord, maxDevices int, retention time.Duration) error
	List(ctx context.Context, userID string) ([]domain.FingerprintRecord, error)
}
