package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Credential type markers carried in the typ claim. Access and refresh
// credentials share the codec but must never be interchangeable.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessTokenClaims carries session context for an access credential. The
// credential encodes nothing secret beyond what the session store can
// independently revoke.
type AccessTokenClaims struct {
	UserID     string `json:"uid"`
	SessionID  string `json:"sid"`
	TokenType  string `json:"typ"`
	RememberMe bool   `json:"rm,omitempty"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims carries the rotation identity of a refresh credential.
type RefreshTokenClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenOptions configures credential claims creation.
type TokenOptions struct {
	UserID     string
	SessionID  string
	Issuer     string
	Audience   []string
	TTL        time.Duration
	IssuedAt   time.Time
	RememberMe bool
	JTI        string
}

const defaultAccessTokenTTL = 15 * time.Minute

// NewAccessTokenClaims constructs standardized access credential claims.
func NewAccessTokenClaims(opts TokenOptions) (*AccessTokenClaims, error) {
	registered, err := registeredClaims(opts, defaultAccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &AccessTokenClaims{
		UserID:           strings.TrimSpace(opts.UserID),
		SessionID:        strings.TrimSpace(opts.SessionID),
		TokenType:        TokenTypeAccess,
		RememberMe:       opts.RememberMe,
		RegisteredClaims: registered,
	}, nil
}

// NewRefreshTokenClaims constructs standardized refresh credential claims.
func NewRefreshTokenClaims(opts TokenOptions) (*RefreshTokenClaims, error) {
	registered, err := registeredClaims(opts, 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	return &RefreshTokenClaims{
		UserID:           strings.TrimSpace(opts.UserID),
		SessionID:        strings.TrimSpace(opts.SessionID),
		TokenType:        TokenTypeRefresh,
		RegisteredClaims: registered,
	}, nil
}

func registeredClaims(opts TokenOptions, defaultTTL time.Duration) (jwt.RegisteredClaims, error) {
	if strings.TrimSpace(opts.UserID) == "" {
		return jwt.RegisteredClaims{}, fmt.Errorf("jwt: user id is required")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		return jwt.RegisteredClaims{}, fmt.Errorf("jwt: issuer is required")
	}

	now := opts.IssuedAt
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	jti := strings.TrimSpace(opts.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	return jwt.RegisteredClaims{
		Subject:   strings.TrimSpace(opts.UserID),
		Issuer:    issuer,
		Audience:  opts.Audience,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        jti,
	}, nil
}

// JWTManager signs and verifies credentials with RS256 keys, resolving
// verification keys by the kid header.
type JWTManager struct {
	provider KeyProvider
}

// NewJWTManager constructs a JWTManager for the supplied key provider.
func NewJWTManager(provider KeyProvider) *JWTManager {
	return &JWTManager{provider: provider}
}

// Sign signs the provided claims with the active signing key.
func (m *JWTManager) Sign(claims jwt.Claims) (string, error) {
	if m.provider == nil {
		return "", fmt.Errorf("jwt: key provider not configured")
	}

	signingKey, err := m.provider.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("jwt: get signing key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.provider.SigningKID()

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Keyfunc resolves the verification key for a parsed token header.
func (m *JWTManager) Keyfunc(t *jwt.Token) (interface{}, error) {
	method, ok := t.Method.(*jwt.SigningMethodRSA)
	if !ok || method == nil {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}

	kid, _ := t.Header["kid"].(string)
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, fmt.Errorf("kid header not found")
	}

	return m.provider.GetVerificationKey(kid)
}
