package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = time.Hour

// Claims is the signed claim set carried by a session token: subject,
// role, issued-at and expiry. The token is a bearer of identity only;
// role and active state are always re-read from the directory on
// verification.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens mints and verifies HS256 session tokens with a process-wide
// secret. It is stateless: validity is determined by signature and
// expiry alone, never by a server-side session table.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens constructs a Tokens codec. The secret is configuration
// owned by the caller; an empty secret is refused so the service can
// never start in an unsigned mode.
func NewTokens(secret []byte, issuer string, ttl time.Duration, now func() time.Time) (*Tokens, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Tokens{secret: secret, issuer: issuer, ttl: ttl, now: now}, nil
}

// Issue signs a session token for the user. Expiry is always issued-at
// plus the configured validity window.
func (t *Tokens) Issue(u User) (SessionToken, error) {
	if strings.TrimSpace(u.ID) == "" {
		return SessionToken{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return SessionToken{}, fmt.Errorf("sign token: %w", err)
	}
	return SessionToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify checks signature, expiry, and claim shape. It returns
// ErrTokenExpired for an elapsed token and ErrInvalidToken for every
// other defect, so the audit log can tell the two apart.
func (t *Tokens) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := t.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *Tokens) validateClaims(claims *Claims) error {
	if t.issuer != "" && claims.Issuer != t.issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("expiry precedes issued-at")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(t.now().UTC().Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	return nil
}
