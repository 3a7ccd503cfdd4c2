package auth

import "context"

// Directory is the user store collaborator the core depends on. The
// core never persists anything itself; all mutation and concurrency
// control (notably the atomic insert-if-absent backing Create) belong
// to the implementation.
type Directory interface {
	// FindByEmail resolves a user by email for credential validation.
	// The returned record includes the stored password hash. Returns
	// ErrUserNotFound when the email does not resolve.
	FindByEmail(ctx context.Context, email string) (User, error)

	// FindByID resolves the live user record for token verification.
	// It must reflect the most recent role and active-flag state.
	FindByID(ctx context.Context, id string) (User, error)

	// Create inserts a new user, assigning its identifier. Returns
	// ErrDuplicateEmail if the email is already taken, including when a
	// concurrent insert wins the race.
	Create(ctx context.Context, nu NewUser) (User, error)

	// Update applies a partial mutation and returns the updated record.
	Update(ctx context.Context, id string, upd UserUpdate) (User, error)

	// SetActive toggles the active flag. A deactivated user fails token
	// verification immediately, regardless of outstanding tokens.
	SetActive(ctx context.Context, id string, active bool) error

	// Delete removes the user record.
	Delete(ctx context.Context, id string) error

	// List returns users matching an optional case-insensitive name
	// filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]User, error)
}

// ListFilter narrows a directory listing.
type ListFilter struct {
	Name   string
	Limit  int
	Offset int
}
