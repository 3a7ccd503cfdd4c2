package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// User management passes through the directory with input validation
// and hash redaction applied at the core boundary. The core never
// mutates state itself.

// ListUsers returns redacted directory records.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	users, err := s.dir.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	for i := range users {
		users[i] = users[i].Redacted()
	}
	return users, nil
}

// UpdateUser applies a partial profile mutation, including activation
// toggling. Deactivation takes effect on the very next token
// verification for that user.
func (s *Service) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return User{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if upd.Age != nil && (*upd.Age < 0 || *upd.Age > 150) {
		return User{}, fmt.Errorf("%w: age out of range", ErrInvalidInput)
	}
	var (
		user User
		err  error
	)
	if activeOnly(upd) {
		if err = s.dir.SetActive(ctx, id, *upd.Active); err == nil {
			user, err = s.dir.FindByID(ctx, id)
		}
	} else {
		user, err = s.dir.Update(ctx, id, upd)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return user.Redacted(), nil
}

func activeOnly(upd UserUpdate) bool {
	return upd.Active != nil && upd.Name == nil && upd.Phone == nil && upd.Age == nil && upd.Address == nil
}

// DeleteUser removes a user record. Outstanding tokens for the user die
// with it: verification re-resolves the subject and finds nothing.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.dir.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return nil
}
