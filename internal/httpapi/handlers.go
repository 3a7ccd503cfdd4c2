package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/obs"
)

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer. It is deliberately thin: every security
// decision happens inside the auth core, and the handlers only
// translate between JSON and the core's contracts.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	gate       *auth.Gate
	readyProbe ReadyProbe
	version    string
}

func New(svc *auth.Service, gate *auth.Gate, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		gate:       gate,
		readyProbe: rp,
		version:    version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	// Credential endpoints sit behind a per-IP limiter: bcrypt work is
	// expensive and these are the only unauthenticated writes.
	a.mux.Handle("/v1/auth/signup", RateLimit(http.HandlerFunc(a.handleSignup), 5, 5))
	a.mux.Handle("/v1/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), 5, 5))
	a.mux.HandleFunc("/v1/auth/profile", a.handleProfile)

	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserByID)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// guard runs the two-phase authorization gate for one operation and
// writes the appropriate response on failure. An empty policy admits
// any authenticated principal. On success the returned request carries
// the principal and token in its context, so audit events downstream
// record the actor.
func (a *API) guard(w http.ResponseWriter, r *http.Request, policy auth.RolePolicy) (auth.User, *http.Request, bool) {
	token, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		unauthorized(w, r)
		return auth.User{}, r, false
	}
	user, err := a.gate.Authorize(r.Context(), token, policy)
	switch {
	case err == nil:
		ctx := auth.ContextWithUser(r.Context(), user)
		ctx = auth.ContextWithToken(ctx, token)
		return user, r.WithContext(ctx), true
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrDirectoryUnavailable):
		writeError(w, http.StatusServiceUnavailable, "directory unavailable")
	default:
		unauthorized(w, r)
	}
	return auth.User{}, r, false
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "gatehouse-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="gatehouse"`)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
