package httpapi

import (
	"errors"
	"net/http"

	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/obs"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  auth.User         `json:"user"`
	Token auth.SessionToken `json:"token"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, token, err := a.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidInput):
		obs.CredentialAttempt("signup", "invalid_input")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrDuplicateEmail):
		obs.CredentialAttempt("signup", "duplicate")
		writeError(w, http.StatusConflict, "email already registered")
		return
	case errors.Is(err, auth.ErrDirectoryUnavailable):
		writeError(w, http.StatusServiceUnavailable, "directory unavailable")
		return
	default:
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	obs.CredentialAttempt("signup", "ok")
	_ = audit.LogEvent(r.Context(), "auth.signup", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, token, err := a.svc.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrDirectoryUnavailable):
		writeError(w, http.StatusServiceUnavailable, "directory unavailable")
		return
	default:
		// Unknown email and wrong password are indistinguishable here.
		obs.CredentialAttempt("login", "denied")
		_ = audit.LogEvent(r.Context(), "auth.login.denied", nil)
		unauthorized(w, r)
		return
	}
	obs.CredentialAttempt("login", "ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

// handleProfile returns the live record of the authenticated principal.
// No role policy: any authenticated user can read their own profile,
// through the same gate the role-gated operations use.
func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _, ok := a.guard(w, r, nil)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}
