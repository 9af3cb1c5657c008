package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer = "redconnect"

	// DefaultTokenTTL is applied when no TTL is configured. Operators set
	// the TTL in whole minutes via REDCONNECT_TOKEN_TTL_MIN.
	DefaultTokenTTL = 30 * time.Minute
)

var (
	// ErrInvalidToken indicates a malformed token, a bad signature, or
	// claims that fail validation.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrExpiredToken indicates a structurally valid token past its expiry.
	// The HTTP layer surfaces it identically to ErrInvalidToken; the split
	// exists for internal callers and tests.
	ErrExpiredToken = errors.New("auth: token expired")
)

// Claims is the identity token payload: subject email, account id, role,
// and the registered expiry.
type Claims struct {
	AccountID string `json:"user_id"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies identity tokens with a process-wide
// secret injected at construction. There is no revocation list; logout is
// purely client-side.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTTL overrides the token lifetime. A zero TTL is legal and produces
// tokens that are already expired when minted.
func WithTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl >= 0 {
			t.ttl = ttl
		}
	}
}

// WithIssuerName overrides the iss claim.
func WithIssuerName(name string) TokenOption {
	return func(t *TokenIssuer) {
		if strings.TrimSpace(name) != "" {
			t.issuer = strings.TrimSpace(name)
		}
	}
}

// WithClock overrides the time source. Only intended for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer constructs a TokenIssuer. The signing secret is required.
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	t := &TokenIssuer{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue signs an HS256 token for the account with expiry = now + TTL.
func (t *TokenIssuer) Issue(acc *Account) (string, time.Time, error) {
	if acc == nil || strings.TrimSpace(acc.ID) == "" {
		return "", time.Time{}, errors.New("auth: account is required")
	}
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		AccountID: acc.ID,
		Role:      acc.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   acc.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature integrity and expiry. It distinguishes
// ErrExpiredToken from ErrInvalidToken so callers can tell the two apart.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := t.validateClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *TokenIssuer) validateClaims(claims *Claims) error {
	if claims.Issuer != t.issuer {
		return ErrInvalidToken
	}
	if strings.TrimSpace(claims.AccountID) == "" || strings.TrimSpace(claims.Subject) == "" {
		return ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	// jwt's validator accepts exp == now; reject it so a zero-TTL token is
	// expired the instant it is minted.
	if !t.now().UTC().Before(claims.ExpiresAt.Time) {
		return ErrExpiredToken
	}
	return nil
}
