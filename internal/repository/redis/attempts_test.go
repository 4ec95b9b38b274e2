package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestAttemptRepository_RecordAndCount(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewAttemptRepository(client, "attempts", time.Hour)

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := repo.RecordAttempt(ctx, "user:u", now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, "user:u", 15*time.Minute, now.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}
}

func TestAttemptRepository_CountExcludesOutsideWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewAttemptRepository(client, "attempts", time.Hour)

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.RecordAttempt(ctx, "user:u", now.Add(-20*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "user:u", now.Add(-time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "user:u", 15*time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the in-window attempt, got %d", count)
	}
}

func TestAttemptRepository_TrimWindowRemovesOldEntries(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewAttemptRepository(client, "attempts", time.Hour)

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.RecordAttempt(ctx, "user:u", now.Add(-30*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "user:u", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	if err := repo.TrimWindow(ctx, "user:u", 15*time.Minute, now); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	members, err := server.ZMembers("attempts:user:u")
	if err != nil {
		t.Fatalf("ZMembers returned error: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 retained member after trim, got %d", len(members))
	}
}

func TestAttemptRepository_ClearAttempts(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewAttemptRepository(client, "attempts", time.Hour)

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.RecordAttempt(ctx, "user:u", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.ClearAttempts(ctx, "user:u"); err != nil {
		t.Fatalf("ClearAttempts returned error: %v", err)
	}

	if server.Exists("attempts:user:u") {
		t.Fatalf("expected attempts key to be removed")
	}

	count, err := repo.CountAttempts(ctx, "user:u", 15*time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 attempts after clear, got %d", count)
	}
}

func TestAttemptRepository_KeyTTLRefreshed(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewAttemptRepository(client, "attempts", time.Hour)

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.RecordAttempt(ctx, "user:u", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	remaining := server.TTL("attempts:user:u")
	if remaining <= 0 || remaining > time.Hour {
		t.Fatalf("expected ttl within (0, 1h], got %v", remaining)
	}
}
