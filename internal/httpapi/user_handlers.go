package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/ids"
)

// User management is admin-only. The policy is declared here, by the
// caller of the gate, not inside the core.
var adminOnly = auth.Roles(auth.RoleAdmin)

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, _, ok := a.guard(w, r, adminOnly); !ok {
		return
	}

	q := r.URL.Query()
	filter := auth.ListFilter{Name: q.Get("name")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	users, err := a.svc.ListUsers(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "directory unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if id == "" || strings.Contains(id, "/") || !ids.Valid(id) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	_, r, ok := a.guard(w, r, adminOnly)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPatch:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, http.MethodPatch, http.MethodDelete)
	}
}

type userUpdateRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Age     *int    `json:"age"`
	Address *string `json:"address"`
	Active  *bool   `json:"active"`
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	var req userUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.svc.UpdateUser(r.Context(), id, auth.UserUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Age:     req.Age,
		Address: req.Address,
		Active:  req.Active,
	})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		writeError(w, http.StatusServiceUnavailable, "directory unavailable")
		return
	}
	fields := map[string]any{"target_user_id": id}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	_ = audit.LogEvent(r.Context(), "user.updated", fields)
	writeJSON(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	err := a.svc.DeleteUser(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return
	default:
		writeError(w, http.StatusServiceUnavailable, "directory unavailable")
		return
	}
	_ = audit.LogEvent(r.Context(), "user.deleted", map[string]any{
		"target_user_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}
