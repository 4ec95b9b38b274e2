package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/logger"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/telemetry"
)

// BruteForceGuard enforces per-user and per-IP sliding-window attempt limits
// with timed lockouts. The two subjects are tracked independently: a locked
// IP blocks every user behind it, and a locked user is blocked from every IP.
type BruteForceGuard struct {
	cfg      config.BruteForceSettings
	attempts port.AttemptStore
	locks    port.LockStore
	events   port.EventPublisher
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewBruteForceGuard constructs a BruteForceGuard.
func NewBruteForceGuard(
	cfg config.BruteForceSettings,
	attempts port.AttemptStore,
	locks port.LockStore,
	events port.EventPublisher,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *BruteForceGuard {
	if log == nil {
		log = zap.NewNop()
	}
	guard := &BruteForceGuard{
		cfg:      cfg,
		attempts: attempts,
		locks:    locks,
		events:   events,
		metrics:  metrics,
		logger:   log,
	}
	guard.now = func() time.Time { return time.Now().UTC() }
	return guard
}

// WithClock overrides the internal clock for deterministic tests.
func (g *BruteForceGuard) WithClock(clock func() time.Time) {
	if clock != nil {
		g.now = clock
	}
}

// Check reports whether the identifier or IP is currently locked out. It must
// run before any credential comparison so locked subjects learn nothing about
// credential validity.
func (g *BruteForceGuard) Check(ctx context.Context, identifier, ip string) error {
	for _, subject := range []struct {
		key  string
		kind domain.LockSubjectKind
	}{
		{g.userKey(identifier), domain.LockSubjectUser},
		{g.ipKey(ip), domain.LockSubjectIP},
	} {
		if subject.key == "" {
			continue
		}
		locked, remaining, _, err := g.locks.IsLocked(ctx, subject.key)
		if err != nil {
			return fmt.Errorf("check lockout: %w", err)
		}
		if locked {
			return &LockoutError{Kind: subject.kind, Remaining: remaining}
		}
	}
	return nil
}

// RecordFailure records a failed attempt against both subjects and locks
// whichever of them crossed its threshold inside its window.
func (g *BruteForceGuard) RecordFailure(ctx context.Context, identifier, ip string) (*domain.AttemptResult, error) {
	now := g.now()
	result := &domain.AttemptResult{}

	userKey := g.userKey(identifier)
	if userKey != "" {
		count, err := g.recordAndCount(ctx, userKey, g.cfg.UserWindow, now)
		if err != nil {
			return nil, err
		}
		result.UserAttempts = count
		if count >= g.cfg.UserMaxAttempts {
			if err := g.lock(ctx, userKey, identifier, domain.LockSubjectUser, g.cfg.UserLockout, count, now); err != nil {
				return nil, err
			}
			result.UserLocked = true
			result.RetryAfter = g.cfg.UserLockout
		}
	}

	ipKey := g.ipKey(ip)
	if ipKey != "" {
		count, err := g.recordAndCount(ctx, ipKey, g.cfg.IPWindow, now)
		if err != nil {
			return nil, err
		}
		result.IPAttempts = count
		if count >= g.cfg.IPMaxAttempts {
			if err := g.lock(ctx, ipKey, ip, domain.LockSubjectIP, g.cfg.IPLockout, count, now); err != nil {
				return nil, err
			}
			result.IPLocked = true
			if g.cfg.IPLockout > result.RetryAfter {
				result.RetryAfter = g.cfg.IPLockout
			}
		}
	}

	return result, nil
}

// RecordSuccess clears the user's attempt window after a successful login.
// The IP window is cleared only while the IP is not locked, so a successful
// login from a shared address cannot release an active IP lockout early.
func (g *BruteForceGuard) RecordSuccess(ctx context.Context, identifier, ip string) error {
	userKey := g.userKey(identifier)
	if userKey != "" {
		if err := g.attempts.ClearAttempts(ctx, userKey); err != nil {
			return fmt.Errorf("clear user attempts: %w", err)
		}
		if err := g.locks.Unlock(ctx, userKey); err != nil {
			return fmt.Errorf("unlock user: %w", err)
		}
	}

	ipKey := g.ipKey(ip)
	if ipKey != "" {
		locked, _, _, err := g.locks.IsLocked(ctx, ipKey)
		if err != nil {
			return fmt.Errorf("check ip lockout: %w", err)
		}
		if !locked {
			if err := g.attempts.ClearAttempts(ctx, ipKey); err != nil {
				return fmt.Errorf("clear ip attempts: %w", err)
			}
		}
	}

	return nil
}

// Delay returns the progressive response delay for the identifier's current
// failure count: one step per recorded failure, capped.
func (g *BruteForceGuard) Delay(ctx context.Context, identifier string) (time.Duration, error) {
	userKey := g.userKey(identifier)
	if userKey == "" {
		return 0, nil
	}

	count, err := g.attempts.CountAttempts(ctx, userKey, g.cfg.UserWindow, g.now())
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	if count <= 0 {
		return 0, nil
	}

	delay := time.Duration(count) * g.cfg.DelayStep
	if g.cfg.MaxDelay > 0 && delay > g.cfg.MaxDelay {
		delay = g.cfg.MaxDelay
	}
	return delay, nil
}

func (g *BruteForceGuard) recordAndCount(ctx context.Context, key string, window time.Duration, now time.Time) (int, error) {
	if err := g.attempts.RecordAttempt(ctx, key, now); err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	if err := g.attempts.TrimWindow(ctx, key, window, now); err != nil {
		return 0, fmt.Errorf("trim attempt window: %w", err)
	}
	count, err := g.attempts.CountAttempts(ctx, key, window, now)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

func (g *BruteForceGuard) lock(ctx context.Context, key, subject string, kind domain.LockSubjectKind, ttl time.Duration, attempts int, now time.Time) error {
	reason := "too_many_failed_attempts"
	if err := g.locks.Lock(ctx, key, reason, ttl); err != nil {
		return fmt.Errorf("lock %s: %w", kind, err)
	}

	if g.metrics != nil {
		g.metrics.LockoutsTotal.WithLabelValues(string(kind)).Inc()
	}

	display := subject
	if kind == domain.LockSubjectIP {
		display = logger.MaskIP(subject)
	} else {
		display = logger.MaskString(subject)
	}
	g.logger.Warn("subject locked out",
		zap.String("kind", string(kind)),
		zap.String("subject", display),
		zap.Int("attempts", attempts),
		zap.Duration("lockout", ttl),
	)

	if g.events != nil {
		event := domain.AccountLockedEvent{
			EventID:     uuid.NewString(),
			Subject:     subject,
			Kind:        kind,
			LockedAt:    now,
			LockedUntil: now.Add(ttl),
			Reason:      reason,
			Attempts:    attempts,
		}
		if err := g.events.PublishAccountLocked(ctx, event); err != nil {
			g.logger.Warn("publish account locked failed", zap.Error(err))
		}
	}

	return nil
}

func (g *BruteForceGuard) userKey(identifier string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return ""
	}
	return "user:" + identifier
}

func (g *BruteForceGuard) ipKey(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	return "ip:" + ip
}
