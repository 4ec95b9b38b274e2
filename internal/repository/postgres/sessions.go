package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var sessionColumns = []string{
	"id",
	"user_id",
	"ip",
	"user_agent",
	"fingerprint",
	"platform",
	"browser",
	"os",
	"remember_me",
	"created_at",
	"last_activity",
	"expires_at",
	"active",
	"revoked_at",
	"revoke_reason",
	"current_refresh_hash",
	"previous_refresh_hash",
	"refresh_version",
	"refresh_rotated_at",
}

// SessionRepository implements port.SessionStore backed by PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that
// satisfies pgExecutor (a pool in production, pgxmock in tests).
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	repo := &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create persists a new session. The row is fully written before Create
// returns, so no partial-write state is observable by sessionID.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	sql, args, err := r.builder.Insert("auth.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.IP,
			session.UserAgent,
			session.Device.Fingerprint,
			session.Device.Platform,
			session.Device.Browser,
			session.Device.OS,
			session.RememberMe,
			session.CreatedAt,
			session.LastActivity,
			session.ExpiresAt,
			session.Active,
			session.RevokedAt,
			session.RevokeReason,
			session.CurrentRefreshHash,
			session.PreviousRefreshHash,
			session.RefreshVersion,
			session.RefreshRotatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// Get loads one session by id.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	sql, args, err := r.builder.Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	session, err := scanSession(r.exec.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}

	return session, nil
}

// ListByUser returns every stored session for the user, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	sql, args, err := r.builder.Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// Touch stamps last activity. It writes no rotation fields, so it is safe
// to run concurrently with a rotation on the same session.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	sql, args, err := r.builder.Update("auth.sessions").
		Set("last_activity", at).
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RotateRefreshHash shifts current -> previous and installs the new hash,
// guarded by a compare-and-set on the presented hash. Two concurrent
// rotations against the same session cannot both match: the second observes
// the first's update and gets ErrStaleRotation.
func (r *SessionRepository) RotateRefreshHash(ctx context.Context, sessionID, presentedHash, newHash string, at time.Time) (int64, error) {
	sql, args, err := r.builder.Update("auth.sessions").
		Set("previous_refresh_hash", squirrel.Expr("current_refresh_hash")).
		Set("current_refresh_hash", newHash).
		Set("refresh_version", squirrel.Expr("refresh_version + 1")).
		Set("refresh_rotated_at", at).
		Set("last_activity", at).
		Where(squirrel.Eq{"id": sessionID, "active": true, "current_refresh_hash": presentedHash}).
		Suffix("RETURNING refresh_version").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build rotate session sql: %w", err)
	}

	var version int64
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrStaleRotation
		}
		return 0, fmt.Errorf("rotate session: %w", err)
	}

	return version, nil
}

// Revoke marks the session inactive. Revoking an already-inactive session
// affects zero rows and is reported as success (idempotent invalidation).
func (r *SessionRepository) Revoke(ctx context.Context, sessionID, reason string, at time.Time) error {
	sql, args, err := r.builder.Update("auth.sessions").
		Set("active", false).
		Set("revoked_at", at).
		Set("revoke_reason", reason).
		Where(squirrel.Eq{"id": sessionID, "active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// DeleteExpired hard-deletes sessions whose expiry passed before the cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	sql, args, err := r.builder.Delete("auth.sessions").
		Where(squirrel.Lt{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.IP,
		&session.UserAgent,
		&session.Device.Fingerprint,
		&session.Device.Platform,
		&session.Device.Browser,
		&session.Device.OS,
		&session.RememberMe,
		&session.CreatedAt,
		&session.LastActivity,
		&session.ExpiresAt,
		&session.Active,
		&session.RevokedAt,
		&session.RevokeReason,
		&session.CurrentRefreshHash,
		&session.PreviousRefreshHash,
		&session.RefreshVersion,
		&session.RefreshRotatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

var _ port.SessionStore = (*SessionRepository)(nil)
