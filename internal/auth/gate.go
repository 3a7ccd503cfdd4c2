package auth

import (
	"context"
	"errors"

	"gatehouse.org/internal/obs"
)

// RolePolicy is the set of roles permitted to invoke an operation.
// Membership is a flat set test; there is no inheritance.
type RolePolicy map[Role]struct{}

// Roles builds a policy from the given roles. Roles() (the empty
// policy) grants any authenticated principal.
func Roles(roles ...Role) RolePolicy {
	p := make(RolePolicy, len(roles))
	for _, r := range roles {
		p[r] = struct{}{}
	}
	return p
}

// Allows reports whether role is a member of the policy.
func (p RolePolicy) Allows(role Role) bool {
	_, ok := p[role]
	return ok
}

// Authenticator establishes identity from a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (User, error)
}

// Gate is the two-phase guard in front of every protected operation:
// authenticate first, then check the resolved role against the
// operation's policy. Both the role-gated and the policy-free paths run
// the identical verification step, so there is exactly one place where
// a token can turn into an identity.
type Gate struct {
	auth Authenticator
}

// NewGate wraps an Authenticator, normally the *Service.
func NewGate(auth Authenticator) *Gate {
	return &Gate{auth: auth}
}

// Authorize runs both phases. Every authentication failure surfaces as
// ErrUnauthenticated regardless of the internal cause; the cause is
// recorded in the log stream only. A directory outage stays
// distinguishable as ErrDirectoryUnavailable so the transport can
// retry instead of treating it as a rejected credential. An empty
// policy grants any authenticated principal.
func (g *Gate) Authorize(ctx context.Context, token string, policy RolePolicy) (User, error) {
	user, err := g.auth.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrDirectoryUnavailable) {
			obs.LogEvent("auth.gate.error", map[string]any{"reason": "directory_unavailable"})
			return User{}, err
		}
		obs.LogEvent("auth.gate.denied", map[string]any{"reason": denialReason(err)})
		obs.AuthDecision("denied")
		return User{}, ErrUnauthenticated
	}
	if len(policy) > 0 && !policy.Allows(user.Role) {
		obs.LogEvent("auth.gate.forbidden", map[string]any{
			"user_id": user.ID,
			"role":    string(user.Role),
		})
		obs.AuthDecision("forbidden")
		return User{}, ErrForbidden
	}
	obs.AuthDecision("granted")
	return user, nil
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrInvalidToken):
		return "token_invalid"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrUserInactive):
		return "user_inactive"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrUnauthenticated):
		return "resolve_timeout"
	default:
		return "unknown"
	}
}
