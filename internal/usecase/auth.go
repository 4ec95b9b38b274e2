package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/logger"
)

// LoginInput carries everything the login pipeline needs from the request.
type LoginInput struct {
	Identifier string
	Password   string
	RememberMe bool
	IP         string
	UserAgent  string
	Signals    domain.DeviceSignals
}

// LoginResult is the successful outcome: issued credentials plus the
// advisory risk assessment for the attempt.
type LoginResult struct {
	Tokens     *TokenPair
	Assessment *domain.RiskAssessment
	NewDevice  bool
}

// AuthService runs the full authentication pipeline: lockout check,
// progressive delay, credential verification, device fingerprinting, risk
// scoring, and session issuance, in that order.
type AuthService struct {
	guard       *BruteForceGuard
	verifier    port.CredentialVerifier
	fingerprint *DeviceFingerprinter
	risk        *RiskScorer
	sessions    *SessionManager
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration)
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	guard *BruteForceGuard,
	verifier port.CredentialVerifier,
	fingerprint *DeviceFingerprinter,
	risk *RiskScorer,
	sessions *SessionManager,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		guard:       guard,
		verifier:    verifier,
		fingerprint: fingerprint,
		risk:        risk,
		sessions:    sessions,
		logger:      log,
		sleep:       sleepContext,
	}
}

// WithSleep overrides the delay primitive for tests.
func (a *AuthService) WithSleep(sleep func(ctx context.Context, d time.Duration)) {
	if sleep != nil {
		a.sleep = sleep
	}
}

// Login authenticates the user. Lockouts reject before the password is ever
// compared, and the progressive delay throttles automated retries below the
// hard threshold. Failed and successful attempts both feed risk scoring.
func (a *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := a.guard.Check(ctx, input.Identifier, input.IP); err != nil {
		return nil, err
	}

	delay, err := a.guard.Delay(ctx, input.Identifier)
	if err != nil {
		return nil, err
	}
	if delay > 0 {
		a.sleep(ctx, delay)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	userID, err := a.verifier.Verify(ctx, input.Identifier, input.Password)
	if err != nil {
		return nil, a.handleFailure(ctx, input)
	}

	if err := a.guard.RecordSuccess(ctx, input.Identifier, input.IP); err != nil {
		a.logger.Warn("record successful attempt failed", zap.Error(err))
	}

	record := a.fingerprint.GenerateFingerprint(input.Signals)

	known, err := a.fingerprint.IsKnownDevice(ctx, userID, record.Fingerprint)
	if err != nil {
		a.logger.Warn("known-device lookup failed", zap.Error(err))
	}

	check, err := a.fingerprint.CheckSuspiciousDevice(ctx, userID, record)
	if err != nil {
		a.logger.Warn("suspicious-device check failed", zap.Error(err))
	}

	metadata := map[string]any{
		"ip": input.IP,
	}
	if !known && record.Fingerprint != domain.UnknownFingerprint {
		metadata[metaNewDevice] = true
	}
	if isSuspiciousUserAgent(input.UserAgent) {
		metadata[metaSuspiciousUA] = true
	}
	if check.Suspicious {
		metadata["device_flag"] = check.Reason
	}

	assessment, err := a.risk.RecordActivity(ctx, userID, domain.ActivityLoginAttempt, metadata)
	if err != nil {
		a.logger.Warn("risk scoring failed", zap.Error(err))
	}

	if err := a.fingerprint.RememberDevice(ctx, userID, record); err != nil {
		a.logger.Warn("remember device failed", zap.Error(err))
	}

	tokens, err := a.sessions.CreateSession(ctx, userID, RequestContext{
		IP:          input.IP,
		UserAgent:   input.UserAgent,
		Fingerprint: record.Fingerprint,
	}, input.RememberMe)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Tokens:     tokens,
		Assessment: assessment,
		NewDevice:  !known,
	}, nil
}

// handleFailure records the failed attempt against both subjects, feeds risk
// scoring, and collapses every verification failure into one uniform error.
func (a *AuthService) handleFailure(ctx context.Context, input LoginInput) error {
	result, err := a.guard.RecordFailure(ctx, input.Identifier, input.IP)
	if err != nil {
		a.logger.Error("record failed attempt failed", zap.Error(err))
	}

	metadata := map[string]any{
		"ip": input.IP,
	}
	if isSuspiciousUserAgent(input.UserAgent) {
		metadata[metaSuspiciousUA] = true
	}

	// Identifier here may be an email that never resolved to a user; the
	// failure still counts toward the identifier's window.
	if _, err := a.risk.RecordActivity(ctx, input.Identifier, domain.ActivityFailedLogin, metadata); err != nil {
		a.logger.Warn("risk scoring failed", zap.Error(err))
	}

	if result != nil {
		if result.UserLocked {
			if _, err := a.risk.RecordActivity(ctx, input.Identifier, domain.ActivityAccountLockout, metadata); err != nil {
				a.logger.Warn("risk scoring failed", zap.Error(err))
			}
			return &LockoutError{Kind: domain.LockSubjectUser, Remaining: result.RetryAfter}
		}
		if result.IPLocked {
			return &LockoutError{Kind: domain.LockSubjectIP, Remaining: result.RetryAfter}
		}
	}

	a.logger.Info("login failed",
		zap.String("identifier", maskIdentifier(input.Identifier)),
		zap.String("ip", logger.MaskIP(input.IP)),
	)
	return ErrCredentialInvalid
}

func maskIdentifier(identifier string) string {
	if strings.Contains(identifier, "@") {
		return logger.MaskEmail(identifier)
	}
	return logger.MaskString(identifier)
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
