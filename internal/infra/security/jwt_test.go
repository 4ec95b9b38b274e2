package security

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type testKeyProvider struct {
	key *rsa.PrivateKey
	kid string
}

func newTestKeyProvider(t *testing.T) *testKeyProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return &testKeyProvider{key: key, kid: "test-key"}
}

func (p *testKeyProvider) GetSigningKey() (*rsa.PrivateKey, error) { return p.key, nil }

func (p *testKeyProvider) GetVerificationKey(kid string) (*rsa.PublicKey, error) {
	if kid != p.kid {
		return nil, errors.New("unknown kid")
	}
	return &p.key.PublicKey, nil
}

func (p *testKeyProvider) SigningKID() string { return p.kid }

func TestJWTManagerSignAndVerify(t *testing.T) {
	provider := newTestKeyProvider(t)
	manager := NewJWTManager(provider)

	issued := time.Now().UTC()
	claims, err := NewAccessTokenClaims(TokenOptions{
		UserID:    "user-1",
		SessionID: "session-1",
		Issuer:    "portal-test",
		TTL:       time.Hour,
		IssuedAt:  issued,
	})
	if err != nil {
		t.Fatalf("NewAccessTokenClaims returned error: %v", err)
	}

	signed, err := manager.Sign(claims)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	parsed := &AccessTokenClaims{}
	if _, err := jwt.ParseWithClaims(signed, parsed, manager.Keyfunc); err != nil {
		t.Fatalf("ParseWithClaims returned error: %v", err)
	}
	if parsed.UserID != "user-1" || parsed.SessionID != "session-1" {
		t.Fatalf("claims did not round-trip: %+v", parsed)
	}
	if parsed.TokenType != TokenTypeAccess {
		t.Fatalf("token type = %q, want access", parsed.TokenType)
	}
	if parsed.ID == "" {
		t.Fatalf("expected a generated jti")
	}
}

func TestJWTManagerRejectsUnknownKID(t *testing.T) {
	signer := newTestKeyProvider(t)
	manager := NewJWTManager(signer)

	claims, err := NewAccessTokenClaims(TokenOptions{
		UserID: "user-1", SessionID: "s", Issuer: "portal-test", TTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewAccessTokenClaims returned error: %v", err)
	}
	signed, err := manager.Sign(claims)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	other := newTestKeyProvider(t)
	other.kid = "different-key"
	verifier := NewJWTManager(other)

	if _, err := jwt.ParseWithClaims(signed, &AccessTokenClaims{}, verifier.Keyfunc); err == nil {
		t.Fatalf("expected verification to fail for an unknown kid")
	}
}

func TestRefreshTokenClaimsCarryType(t *testing.T) {
	claims, err := NewRefreshTokenClaims(TokenOptions{
		UserID: "user-1", SessionID: "session-1", Issuer: "portal-test", TTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewRefreshTokenClaims returned error: %v", err)
	}
	if claims.TokenType != TokenTypeRefresh {
		t.Fatalf("token type = %q, want refresh", claims.TokenType)
	}
}

func TestNewAccessTokenClaimsValidation(t *testing.T) {
	if _, err := NewAccessTokenClaims(TokenOptions{Issuer: "portal"}); err == nil {
		t.Fatalf("expected error without user id")
	}
	if _, err := NewAccessTokenClaims(TokenOptions{UserID: "u"}); err == nil {
		t.Fatalf("expected error without issuer")
	}
}

func TestHashCredentialBindsUser(t *testing.T) {
	same := HashCredential("material", "user-1")
	if same != HashCredential("material", "user-1") {
		t.Fatalf("expected hash to be deterministic")
	}
	if same == HashCredential("material", "user-2") {
		t.Fatalf("expected hash to differ per user")
	}
	if same == HashCredential("other", "user-1") {
		t.Fatalf("expected hash to differ per material")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatalf("expected error on non-positive length")
	}
}
