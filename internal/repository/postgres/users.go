package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/security"
)

// ErrInvalidCredentials is returned when the identifier does not resolve or
// the password does not match. The two cases are deliberately not
// distinguishable by the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository resolves login identifiers and verifies primary
// credentials against stored Argon2id hashes.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Verify resolves the identifier (email or username) and compares the
// password against the stored hash. Unknown identifiers and wrong passwords
// fail identically.
func (r *UserRepository) Verify(ctx context.Context, identifier, password string) (string, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	sql, args, err := r.builder.Select("id", "password_hash").
		From("auth.users").
		Where(squirrel.Or{
			squirrel.Eq{"lower(email)": identifier},
			squirrel.Eq{"lower(username)": identifier},
		}).
		Where(squirrel.Eq{"active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build user query: %w", err)
	}

	var (
		userID       string
		passwordHash string
	)
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&userID, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("query user: %w", err)
	}

	match, err := security.VerifyPassword(password, passwordHash)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return "", ErrInvalidCredentials
	}

	return userID, nil
}

var _ port.CredentialVerifier = (*UserRepository)(nil)
