package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/logger"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/security"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/telemetry"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/repository"
)

// RequestContext carries the request-observable facts a session is bound to.
type RequestContext struct {
	IP          string
	UserAgent   string
	Fingerprint string
}

// TokenPair is the credential material handed back on login and rotation.
type TokenPair struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// SessionManager issues, validates, rotates, and invalidates sessions, and
// decides when a live session's access credential should be silently renewed.
type SessionManager struct {
	cfg     config.SessionSettings
	jwtCfg  config.JWTSettings
	store   port.SessionStore
	signer  *security.JWTManager
	events  port.EventPublisher
	metrics *telemetry.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(
	cfg config.SessionSettings,
	jwtCfg config.JWTSettings,
	store port.SessionStore,
	signer *security.JWTManager,
	events port.EventPublisher,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	manager := &SessionManager{
		cfg:     cfg,
		jwtCfg:  jwtCfg,
		store:   store,
		signer:  signer,
		events:  events,
		metrics: metrics,
		logger:  log,
	}
	manager.now = func() time.Time { return time.Now().UTC() }
	return manager
}

// WithClock overrides the internal clock for deterministic tests.
func (m *SessionManager) WithClock(clock func() time.Time) {
	if clock != nil {
		m.now = clock
	}
}

// CreateSession persists a fresh session for the user and issues its first
// credential pair. The session is queryable by id as soon as this returns.
func (m *SessionManager) CreateSession(ctx context.Context, userID string, reqCtx RequestContext, rememberMe bool) (*TokenPair, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	now := m.now()
	ttl := m.sessionTTL(rememberMe)
	sessionID := uuid.NewString()

	refreshToken, err := m.signRefresh(userID, sessionID, now, ttl)
	if err != nil {
		return nil, err
	}

	device := classifyDevice(reqCtx.UserAgent)
	device.Fingerprint = reqCtx.Fingerprint
	if device.Fingerprint == "" {
		device.Fingerprint = domain.UnknownFingerprint
	}

	session := domain.Session{
		ID:                 sessionID,
		UserID:             userID,
		IP:                 reqCtx.IP,
		UserAgent:          reqCtx.UserAgent,
		Device:             device,
		RememberMe:         rememberMe,
		CreatedAt:          now,
		LastActivity:       now,
		ExpiresAt:          now.Add(ttl),
		Active:             true,
		CurrentRefreshHash: security.HashCredential(refreshToken, userID),
		RefreshVersion:     1,
		RefreshRotatedAt:   now,
	}

	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	accessToken, err := m.signAccess(userID, sessionID, now, ttl, rememberMe)
	if err != nil {
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.SessionsCreated.Inc()
	}
	m.logger.Info("session created",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.String("ip", logger.MaskIP(reqCtx.IP)),
		zap.Bool("remember_me", rememberMe),
	)

	return &TokenPair{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    ttl,
	}, nil
}

// Rotate exchanges a refresh credential for a fresh pair. A presented hash
// that no longer matches the session's current hash is treated as credential
// reuse, not a benign error: the session is revoked on the spot, bounding
// the damage of a stolen credential to one rotation cycle.
func (m *SessionManager) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	now := m.now()
	if !session.IsActive(now) {
		return nil, ErrSessionInactive
	}

	presentedHash := security.HashCredential(refreshToken, claims.UserID)
	if presentedHash != session.CurrentRefreshHash {
		return nil, m.handleReuse(ctx, session, now)
	}

	ttl := session.ExpiresAt.Sub(now)
	newRefreshToken, err := m.signRefresh(session.UserID, session.ID, now, ttl)
	if err != nil {
		return nil, err
	}
	newHash := security.HashCredential(newRefreshToken, session.UserID)

	version, err := m.store.RotateRefreshHash(ctx, session.ID, presentedHash, newHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrStaleRotation) {
			// Lost a race with a concurrent rotation: by the time our
			// compare-and-set ran, the presented hash was already stale.
			refreshed, getErr := m.store.Get(ctx, session.ID)
			if getErr == nil && !refreshed.IsActive(now) {
				return nil, ErrSessionInactive
			}
			if getErr == nil {
				return nil, m.handleReuse(ctx, refreshed, now)
			}
			return nil, ErrCredentialReuseDetected
		}
		return nil, fmt.Errorf("rotate refresh hash: %w", err)
	}

	accessToken, err := m.signAccess(session.UserID, session.ID, now, ttl, session.RememberMe)
	if err != nil {
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.RotationsTotal.Inc()
	}
	m.logger.Debug("refresh credential rotated",
		zap.String("session_id", session.ID),
		zap.Int64("refresh_version", version),
	)

	return &TokenPair{
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    ttl,
	}, nil
}

func (m *SessionManager) handleReuse(ctx context.Context, session *domain.Session, now time.Time) error {
	if err := m.store.Revoke(ctx, session.ID, "credential_reuse", now); err != nil {
		m.logger.Error("revoke session after reuse detection failed",
			zap.String("session_id", session.ID), zap.Error(err))
	}

	if m.metrics != nil {
		m.metrics.ReuseDetectedTotal.Inc()
	}
	m.logger.Warn("credential reuse detected, session revoked",
		zap.String("session_id", session.ID),
		zap.String("user_id", session.UserID),
	)

	m.publishRevoked(ctx, session, "credential_reuse", now)

	return ErrCredentialReuseDetected
}

// SlidingRenewal issues a fresh access credential once the presented one has
// consumed the configured fraction of its lifetime. It runs on the hot
// request path: one session lookup, a last-activity stamp, and no writes to
// any rotation field, so concurrent execution for the same session is safe.
func (m *SessionManager) SlidingRenewal(ctx context.Context, claims *security.AccessTokenClaims) (string, error) {
	if claims == nil || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return "", ErrCredentialInvalid
	}

	issued := claims.IssuedAt.Time
	lifetime := claims.ExpiresAt.Time.Sub(issued)
	if lifetime <= 0 {
		return "", ErrCredentialInvalid
	}

	now := m.now()
	threshold := m.cfg.RenewalThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	if float64(now.Sub(issued))/float64(lifetime) <= threshold {
		return "", nil
	}

	session, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	if !session.IsActive(now) {
		return "", ErrSessionInactive
	}

	// Remember-me is inferred from the original lifetime rather than the
	// claim flag, so credentials minted before the flag existed renew too.
	rememberMe := lifetime > m.rememberMeBoundary()
	renewTTL := m.sessionTTL(rememberMe)

	renewed, err := m.signAccess(claims.UserID, claims.SessionID, now, renewTTL, rememberMe)
	if err != nil {
		return "", err
	}

	if err := m.store.Touch(ctx, session.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
		m.logger.Warn("touch session failed", zap.String("session_id", session.ID), zap.Error(err))
	}

	if m.metrics != nil {
		m.metrics.RenewalsTotal.Inc()
	}

	return renewed, nil
}

// ValidateAccess verifies an access credential and confirms its session is
// still live, stamping last activity.
func (m *SessionManager) ValidateAccess(ctx context.Context, token string) (*security.AccessTokenClaims, *domain.Session, error) {
	claims, err := m.ParseAccessToken(token)
	if err != nil {
		return nil, nil, err
	}

	session, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("get session: %w", err)
	}

	now := m.now()
	if !session.IsActive(now) {
		return nil, nil, ErrSessionInactive
	}

	if err := m.store.Touch(ctx, session.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
		m.logger.Warn("touch session failed", zap.String("session_id", session.ID), zap.Error(err))
	}

	return claims, session, nil
}

// Invalidate marks the session revoked. Invalidating an already-inactive
// session is a no-op success.
func (m *SessionManager) Invalidate(ctx context.Context, sessionID, reason string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if reason == "" {
		reason = "user_logout"
	}

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("get session: %w", err)
	}

	now := m.now()
	if !session.Active {
		return nil
	}

	if err := m.store.Revoke(ctx, sessionID, reason, now); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	m.publishRevoked(ctx, session, reason, now)

	return nil
}

// Stats returns the user's active sessions partitioned by remember-me, with
// rotation hashes redacted.
func (m *SessionManager) Stats(ctx context.Context, userID string) (*domain.SessionStats, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}

	sessions, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.SessionStats{}, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := m.now()
	stats := &domain.SessionStats{}
	for _, session := range sessions {
		if !session.IsActive(now) {
			continue
		}
		stats.Total++
		if session.RememberMe {
			stats.Persistent++
		} else {
			stats.SessionOnly++
		}
		stats.Sessions = append(stats.Sessions, domain.SessionSummary{
			ID:           session.ID,
			IP:           session.IP,
			Device:       session.Device,
			RememberMe:   session.RememberMe,
			CreatedAt:    session.CreatedAt,
			LastActivity: session.LastActivity,
			ExpiresAt:    session.ExpiresAt,
		})
	}

	return stats, nil
}

// SweepExpired hard-deletes sessions whose expiry has passed.
func (m *SessionManager) SweepExpired(ctx context.Context) (int, error) {
	count, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}
	if count > 0 {
		m.logger.Info("expired sessions swept", zap.Int("count", count))
	}
	return count, nil
}

// ParseAccessToken verifies signature, issuer, audience, and expiry of an
// access credential. Expired and malformed credentials surface as distinct
// internal kinds but identical caller-facing failures.
func (m *SessionManager) ParseAccessToken(token string) (*security.AccessTokenClaims, error) {
	claims := &security.AccessTokenClaims{}
	if err := m.parseToken(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != security.TokenTypeAccess || strings.TrimSpace(claims.SessionID) == "" {
		return nil, ErrCredentialInvalid
	}
	return claims, nil
}

func (m *SessionManager) parseRefresh(token string) (*security.RefreshTokenClaims, error) {
	claims := &security.RefreshTokenClaims{}
	if err := m.parseToken(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != security.TokenTypeRefresh || strings.TrimSpace(claims.SessionID) == "" {
		return nil, ErrCredentialInvalid
	}
	return claims, nil
}

func (m *SessionManager) parseToken(token string, claims jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrCredentialInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuer(m.jwtCfg.Issuer),
	}
	if audience := strings.TrimSpace(m.jwtCfg.Audience); audience != "" {
		options = append(options, jwt.WithAudience(audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, m.signer.Keyfunc, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrCredentialExpired
		}
		return ErrCredentialInvalid
	}
	if parsed == nil || !parsed.Valid {
		return ErrCredentialInvalid
	}

	return nil
}

func (m *SessionManager) signAccess(userID, sessionID string, issuedAt time.Time, ttl time.Duration, rememberMe bool) (string, error) {
	claims, err := security.NewAccessTokenClaims(security.TokenOptions{
		UserID:     userID,
		SessionID:  sessionID,
		Issuer:     m.jwtCfg.Issuer,
		Audience:   m.audience(),
		TTL:        ttl,
		IssuedAt:   issuedAt,
		RememberMe: rememberMe,
	})
	if err != nil {
		return "", err
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign access credential: %w", err)
	}
	return signed, nil
}

func (m *SessionManager) signRefresh(userID, sessionID string, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims, err := security.NewRefreshTokenClaims(security.TokenOptions{
		UserID:    userID,
		SessionID: sessionID,
		Issuer:    m.jwtCfg.Issuer,
		Audience:  m.audience(),
		TTL:       ttl,
		IssuedAt:  issuedAt,
	})
	if err != nil {
		return "", err
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign refresh credential: %w", err)
	}
	return signed, nil
}

func (m *SessionManager) publishRevoked(ctx context.Context, session *domain.Session, reason string, at time.Time) {
	if m.events == nil {
		return
	}

	ip := session.IP
	event := domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		SessionID: session.ID,
		UserID:    session.UserID,
		RevokedAt: at,
		Reason:    reason,
		IP:        &ip,
	}
	if err := m.events.PublishSessionRevoked(ctx, event); err != nil {
		m.logger.Warn("publish session revoked failed",
			zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (m *SessionManager) sessionTTL(rememberMe bool) time.Duration {
	if rememberMe {
		if m.cfg.RememberMeTTL > 0 {
			return m.cfg.RememberMeTTL
		}
		return 90 * 24 * time.Hour
	}
	if m.cfg.TTL > 0 {
		return m.cfg.TTL
	}
	return 24 * time.Hour
}

func (m *SessionManager) rememberMeBoundary() time.Duration {
	if m.cfg.RememberMeBoundary > 0 {
		return m.cfg.RememberMeBoundary
	}
	return 48 * time.Hour
}

func (m *SessionManager) audience() []string {
	if audience := strings.TrimSpace(m.jwtCfg.Audience); audience != "" {
		return []string{audience}
	}
	return nil
}
