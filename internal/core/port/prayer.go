package port

import (
	"context"
	"time"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
)

// PrayerTimeCalculator computes prayer times for a location and date.
// Implementations are treated as pure and deterministic.
type PrayerTimeCalculator interface {
	Calculate(lat, lon float64, date time.Time, timezone, method, madhab string) (domain.PrayerTimes, error)
}

// PreferenceSource reads per-user prayer notification preferences. Reads
// must hit the datastore directly; the scheduler depends on freshness.
type PreferenceSource interface {
	Get(ctx context.Context, userID string) (*domain.PrayerPreferences, error)
	ListSubscribedUsers(ctx context.Context) ([]string, error)
}

// PushQueue hands notifications to the at-least-once delivery layer.
type PushQueue interface {
	Enqueue(ctx context.Context, notification domain.PushNotification) error
}
