package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/security"
)

func testPasswordHash(t *testing.T, password string) string {
	t.Helper()
	cfg := security.Argon2Config{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	encoded, err := security.HashPassword(password, cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	return encoded
}

func TestUserRepository_VerifySuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	hash := testPasswordHash(t, "s3cret password")

	rows := pgxmock.NewRows([]string{"id", "password_hash"}).AddRow("user-1", hash)
	mock.ExpectQuery(`SELECT id, password_hash FROM auth\.users`).
		WithArgs("user@example.com", "user@example.com", true).
		WillReturnRows(rows)

	userID, err := repo.Verify(context.Background(), "  User@Example.COM  ", "s3cret password")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %s", userID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_VerifyWrongPassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	hash := testPasswordHash(t, "the real password")

	rows := pgxmock.NewRows([]string{"id", "password_hash"}).AddRow("user-1", hash)
	mock.ExpectQuery(`SELECT id, password_hash FROM auth\.users`).
		WithArgs("user@example.com", "user@example.com", true).
		WillReturnRows(rows)

	if _, err := repo.Verify(context.Background(), "user@example.com", "a guess"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_VerifyUnknownIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT id, password_hash FROM auth\.users`).
		WithArgs("nobody@example.com", "nobody@example.com", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "password_hash"}))

	if _, err := repo.Verify(context.Background(), "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_VerifyEmptyInputs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	if _, err := repo.Verify(context.Background(), "", "password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty identifier, got %v", err)
	}
	if _, err := repo.Verify(context.Background(), "user@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
