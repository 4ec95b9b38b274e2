package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/repository"
)

// PreferenceRepository reads prayer notification preferences. Every read
// hits the database directly; the scheduler's correctness depends on never
// serving cached preference state.
type PreferenceRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPreferenceRepository constructs a repository backed by any executor
// that satisfies pgExecutor.
func NewPreferenceRepository(exec pgExecutor) *PreferenceRepository {
	return &PreferenceRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get loads one user's current preferences.
func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*domain.PrayerPreferences, error) {
	sql, args, err := r.builder.Select(
		"user_id",
		"subscription_id",
		"latitude",
		"longitude",
		"timezone",
		"calculation_method",
		"madhab",
		"fajr_enabled",
		"dhuhr_enabled",
		"asr_enabled",
		"maghrib_enabled",
		"isha_enabled",
		"reminder_minutes",
	).
		From("prayer.preferences").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build preferences query: %w", err)
	}

	var (
		prefs   domain.PrayerPreferences
		fajr    bool
		dhuhr   bool
		asr     bool
		maghrib bool
		isha    bool
	)
	err = r.exec.QueryRow(ctx, sql, args...).Scan(
		&prefs.UserID,
		&prefs.SubscriptionID,
		&prefs.Latitude,
		&prefs.Longitude,
		&prefs.Timezone,
		&prefs.CalculationMethod,
		&prefs.Madhab,
		&fajr,
		&dhuhr,
		&asr,
		&maghrib,
		&isha,
		&prefs.ReminderMinutes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("query preferences: %w", err)
	}

	prefs.Enabled = map[domain.Prayer]bool{
		domain.PrayerFajr:    fajr,
		domain.PrayerDhuhr:   dhuhr,
		domain.PrayerAsr:     asr,
		domain.PrayerMaghrib: maghrib,
		domain.PrayerIsha:    isha,
	}
	return &prefs, nil
}

// ListSubscribedUsers returns every user with a push subscription and at
// least one enabled prayer.
func (r *PreferenceRepository) ListSubscribedUsers(ctx context.Context) ([]string, error) {
	sql, args, err := r.builder.Select("user_id").
		From("prayer.preferences").
		Where(squirrel.NotEq{"subscription_id": ""}).
		Where(squirrel.Expr("(fajr_enabled OR dhuhr_enabled OR asr_enabled OR maghrib_enabled OR isha_enabled)")).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build subscribed users query: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscribed users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan subscribed user: %w", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribed users: %w", err)
	}
	return users, nil
}

var _ port.PreferenceSource = (*PreferenceRepository)(nil)
