package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/security"
)

type stubVerifier struct {
	userID string
	err    error
	calls  int
}

func (v *stubVerifier) Verify(_ context.Context, _, _ string) (string, error) {
	v.calls++
	if v.err != nil {
		return "", v.err
	}
	return v.userID, nil
}

type authFixture struct {
	auth     *AuthService
	verifier *stubVerifier
	sessions *memorySessionStore
	devices  *memoryDeviceStore
	delays   *[]time.Duration
	now      *time.Time
}

func newAuthFixture(t *testing.T, verifier *stubVerifier) *authFixture {
	t.Helper()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	log := zaptest.NewLogger(t)

	attempts := newMemoryAttemptStore()
	locks := newMemoryLockStore(clock)
	guard := NewBruteForceGuard(testBruteForceSettings(), attempts, locks, &recordingPublisher{}, nil, log)
	guard.WithClock(clock)

	devices := newMemoryDeviceStore()
	fingerprint := NewDeviceFingerprinter(testDeviceSettings(), devices, log)
	fingerprint.WithClock(clock)

	risk := NewRiskScorer(testRiskSettings(), newMemoryActivityStore(), &recordingPublisher{}, nil, log)
	risk.WithClock(clock)

	sessionStore := newMemorySessionStore()
	sessions := NewSessionManager(testSessionSettings(), testJWTSettings(), sessionStore, security.NewJWTManager(newStaticKeyProvider(t)), &recordingPublisher{}, nil, log)
	sessions.WithClock(clock)

	auth := NewAuthService(guard, verifier, fingerprint, risk, sessions, log)
	var delays []time.Duration
	auth.WithSleep(func(_ context.Context, d time.Duration) {
		delays = append(delays, d)
	})

	return &authFixture{
		auth:     auth,
		verifier: verifier,
		sessions: sessionStore,
		devices:  devices,
		delays:   &delays,
		now:      &now,
	}
}

func loginInput() LoginInput {
	return LoginInput{
		Identifier: "user@example.com",
		Password:   "correct horse battery staple",
		IP:         "203.0.113.7",
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0) Chrome/119.0.1",
		Signals:    chromeSignals("119.0.1"),
	}
}

func TestLoginIssuesSessionAndFlagsNewDevice(t *testing.T) {
	fixture := newAuthFixture(t, &stubVerifier{userID: "user-1"})

	result, err := fixture.auth.Login(context.Background(), loginInput())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Tokens == nil || result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatal("login did not issue a credential pair")
	}
	if !result.NewDevice {
		t.Fatal("first login from a device should report it as new")
	}
	if result.Assessment == nil {
		t.Fatal("login did not produce a risk assessment")
	}

	// The device is remembered, so a second login is no longer new.
	again, err := fixture.auth.Login(context.Background(), loginInput())
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if again.NewDevice {
		t.Fatal("remembered device still reported as new")
	}
}

func TestLoginFailureIsUniformAndCounted(t *testing.T) {
	fixture := newAuthFixture(t, &stubVerifier{err: errors.New("password mismatch")})

	_, err := fixture.auth.Login(context.Background(), loginInput())
	if !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("login error = %v, want uniform ErrCredentialInvalid", err)
	}
}

func TestLoginLocksOutAfterRepeatedFailures(t *testing.T) {
	fixture := newAuthFixture(t, &stubVerifier{err: errors.New("password mismatch")})
	ctx := context.Background()

	var lockout *LockoutError
	for i := 1; i <= 5; i++ {
		_, err := fixture.auth.Login(ctx, loginInput())
		if i < 5 {
			if !errors.Is(err, ErrCredentialInvalid) {
				t.Fatalf("attempt %d: err = %v, want ErrCredentialInvalid", i, err)
			}
			continue
		}
		if !errors.As(err, &lockout) {
			t.Fatalf("attempt 5: err = %v, want LockoutError", err)
		}
	}
	if lockout.Remaining != 30*time.Minute {
		t.Fatalf("lockout remaining = %v, want 30m", lockout.Remaining)
	}

	// While locked, the credential is never compared.
	calls := fixture.verifier.calls
	if _, err := fixture.auth.Login(ctx, loginInput()); !errors.As(err, &lockout) {
		t.Fatalf("locked login err = %v, want LockoutError", err)
	}
	if fixture.verifier.calls != calls {
		t.Fatal("verifier consulted while the subject was locked")
	}
}

func TestLoginAppliesProgressiveDelay(t *testing.T) {
	fixture := newAuthFixture(t, &stubVerifier{err: errors.New("password mismatch")})
	ctx := context.Background()

	if _, err := fixture.auth.Login(ctx, loginInput()); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := fixture.auth.Login(ctx, loginInput()); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := fixture.auth.Login(ctx, loginInput()); err == nil {
		t.Fatal("expected failure")
	}

	delays := *fixture.delays
	// No delay before the first attempt; one step then two after it.
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("delays = %v, want [1s 2s]", delays)
	}
}

func TestLoginSuccessResetsFailureWindow(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("password mismatch")}
	fixture := newAuthFixture(t, verifier)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := fixture.auth.Login(ctx, loginInput()); err == nil {
			t.Fatal("expected failure")
		}
	}

	verifier.err = nil
	verifier.userID = "user-1"
	if _, err := fixture.auth.Login(ctx, loginInput()); err != nil {
		t.Fatalf("login after clearing credential error: %v", err)
	}

	// The window is clean again: four more failures stay below the threshold.
	verifier.err = errors.New("password mismatch")
	for i := 0; i < 4; i++ {
		_, err := fixture.auth.Login(ctx, loginInput())
		if !errors.Is(err, ErrCredentialInvalid) {
			t.Fatalf("post-reset attempt %d: err = %v, want ErrCredentialInvalid", i+1, err)
		}
	}
}
