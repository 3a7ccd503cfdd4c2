package auth

import "errors"

var (
	// ErrInvalidInput reports malformed credential or profile data. The
	// caller can recover by correcting the request.
	ErrInvalidInput = errors.New("auth: invalid input")

	// ErrUnauthenticated is the single externally visible rejection for
	// every failed credential or token check. Unknown email, wrong
	// password, malformed token, expired token, deleted or deactivated
	// user all collapse to this value; the distinctions below exist for
	// audit logging only.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden means identity was established but the role does not
	// satisfy the operation's policy.
	ErrForbidden = errors.New("auth: forbidden")

	// ErrDuplicateEmail reports a registration conflict.
	ErrDuplicateEmail = errors.New("auth: email already registered")

	// ErrDirectoryUnavailable reports a directory I/O failure, kept
	// distinct from rejection so callers may retry at the transport.
	ErrDirectoryUnavailable = errors.New("auth: directory unavailable")

	// Internal verification outcomes. Never returned across the service
	// boundary; see Gate.Authorize and Service.Authenticate.
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrUserNotFound = errors.New("auth: user not found")
	ErrUserInactive = errors.New("auth: user inactive")
)
