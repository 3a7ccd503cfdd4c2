package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	defaultIssuer         = "gatehouse"
	defaultBcryptCost     = 10
	defaultResolveTimeout = 3 * time.Second

	minSecretLength = 8
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Service composes credential validation, registration, and token
// verification on top of a Directory. It holds no mutable state of its
// own beyond read-only configuration, so concurrent requests need no
// coordination here.
type Service struct {
	dir    Directory
	hasher *Hasher
	tokens *Tokens

	issuer         string
	tokenTTL       time.Duration
	bcryptCost     int
	resolveTimeout time.Duration
	now            func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
	}
}

// WithTokenTTL configures the session token validity window.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithBcryptCost configures the password hashing work factor.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

// WithResolveTimeout bounds the directory lookup performed during token
// verification. On timeout the request fails closed.
func WithResolveTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resolveTimeout = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth core. The signing secret is owned by
// the caller's configuration; Service only reads it.
func NewService(dir Directory, secret []byte, opts ...Option) (*Service, error) {
	if dir == nil {
		return nil, errors.New("auth: directory is required")
	}
	s := &Service{
		dir:            dir,
		issuer:         defaultIssuer,
		tokenTTL:       defaultTokenTTL,
		bcryptCost:     defaultBcryptCost,
		resolveTimeout: defaultResolveTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	tokens, err := NewTokens(secret, s.issuer, s.tokenTTL, s.now)
	if err != nil {
		return nil, err
	}
	s.tokens = tokens
	s.hasher = NewHasher(s.bcryptCost)
	return s, nil
}

// Login validates credentials and issues a session token. Unknown email
// and wrong password are indistinguishable to the caller: both return
// ErrUnauthenticated, so login cannot be used to enumerate accounts.
func (s *Service) Login(ctx context.Context, email, secret string) (User, SessionToken, error) {
	email = normalizeEmail(email)
	if email == "" || secret == "" {
		return User{}, SessionToken{}, ErrUnauthenticated
	}
	user, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, SessionToken{}, ErrUnauthenticated
		}
		return User{}, SessionToken{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !user.Active {
		return User{}, SessionToken{}, ErrUnauthenticated
	}
	if !s.hasher.Verify(secret, user.PasswordHash) {
		return User{}, SessionToken{}, ErrUnauthenticated
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return User{}, SessionToken{}, err
	}
	return user.Redacted(), token, nil
}

// Register creates a new account and issues a token in one call. The
// new user always starts as an active lowest-privilege principal.
func (s *Service) Register(ctx context.Context, email, secret, name string) (User, SessionToken, error) {
	email = normalizeEmail(email)
	if err := validateRegistration(email, secret, name); err != nil {
		return User{}, SessionToken{}, err
	}
	// Fast duplicate check. The directory's unique constraint is still
	// the authority: a concurrent insert between this lookup and Create
	// surfaces as ErrDuplicateEmail from Create itself.
	if _, err := s.dir.FindByEmail(ctx, email); err == nil {
		return User{}, SessionToken{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, SessionToken{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return User{}, SessionToken{}, err
	}
	user, err := s.dir.Create(ctx, NewUser{Email: email, Name: strings.TrimSpace(name), PasswordHash: hash})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return User{}, SessionToken{}, ErrDuplicateEmail
		}
		return User{}, SessionToken{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return User{}, SessionToken{}, err
	}
	return user.Redacted(), token, nil
}

// Authenticate verifies a presented token and re-resolves the live user
// record. The token is a bearer of identity, never a cache of
// attributes: role and active state come from the directory, so changes
// made after issuance are observed immediately.
//
// Failures keep their internal distinction (ErrInvalidToken,
// ErrTokenExpired, ErrUserNotFound, ErrUserInactive); the Gate collapses
// them before anything leaves the core.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return User{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()
	user, err := s.dir.FindByID(ctx, claims.Subject)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return User{}, ErrUserNotFound
		case errors.Is(err, context.DeadlineExceeded):
			// Auth fails closed rather than hang on a slow directory.
			return User{}, ErrUnauthenticated
		default:
			return User{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
		}
	}
	if !user.Active {
		return User{}, ErrUserInactive
	}
	return user.Redacted(), nil
}

func validateRegistration(email, secret, name string) error {
	if email == "" || len(email) > 254 || !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(secret) < minSecretLength {
		return fmt.Errorf("%w: secret must be at least %d characters", ErrInvalidInput, minSecretLength)
	}
	if len(secret) > maxSecretBytes {
		return fmt.Errorf("%w: secret exceeds %d bytes", ErrInvalidInput, maxSecretBytes)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
