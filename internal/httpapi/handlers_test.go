package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/ids"
)

// fakeDirectory is an in-memory auth.Directory for handler tests.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]auth.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]auth.User)}
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (d *fakeDirectory) Create(_ context.Context, nu auth.NewUser) (auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, nu.Email) {
			return auth.User{}, auth.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	u := auth.User{
		ID:           ids.New(),
		Email:        nu.Email,
		Name:         nu.Name,
		Role:         auth.RoleUser,
		Active:       true,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	d.users[u.ID] = u
	return u, nil
}

func (d *fakeDirectory) Update(_ context.Context, id string, upd auth.UserUpdate) (auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Age != nil {
		u.Age = *upd.Age
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	u.UpdatedAt = time.Now().UTC()
	d.users[id] = u
	return u, nil
}

func (d *fakeDirectory) SetActive(ctx context.Context, id string, active bool) error {
	_, err := d.Update(ctx, id, auth.UserUpdate{Active: &active})
	return err
}

func (d *fakeDirectory) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(d.users, id)
	return nil
}

func (d *fakeDirectory) List(_ context.Context, filter auth.ListFilter) ([]auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []auth.User
	for _, u := range d.users {
		if filter.Name == "" || strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Name)) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *fakeDirectory) promote(id string, role auth.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.users[id]
	u.Role = role
	d.users[id] = u
}

func newTestAPI(t *testing.T) (*API, *fakeDirectory) {
	t.Helper()
	dir := newFakeDirectory()
	svc, err := auth.NewService(dir, []byte("handler-test-secret"), auth.WithBcryptCost(4))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, auth.NewGate(svc), ReadyProbe{}, "test"), dir
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func signup(t *testing.T, api *API, email, name string) sessionResponse {
	t.Helper()
	rr := doJSON(t, api.mux, http.MethodPost, "/v1/auth/signup", "", signupRequest{
		Email:    email,
		Password: "secret-one",
		Name:     name,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d, body %s", email, rr.Code, rr.Body.String())
	}
	var resp sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return resp
}

func TestSignupIssuesSession(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := signup(t, api, "a@x.com", "Alice")
	if resp.User.Email != "a@x.com" || resp.User.Role != auth.RoleUser {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if resp.Token.Token == "" {
		t.Fatal("expected a session token")
	}
	if strings.Contains(strings.ToLower(resp.User.PasswordHash), "$2") {
		t.Fatal("password hash leaked in response")
	}
}

func TestSignupDuplicateConflict(t *testing.T) {
	api, _ := newTestAPI(t)
	signup(t, api, "a@x.com", "Alice")

	rr := doJSON(t, api.mux, http.MethodPost, "/v1/auth/signup", "", signupRequest{
		Email:    "a@x.com",
		Password: "secret-two",
		Name:     "Imposter",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", rr.Code)
	}
}

func TestSignupRejectsBadInput(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := doJSON(t, api.mux, http.MethodPost, "/v1/auth/signup", "", signupRequest{
		Email:    "not-an-email",
		Password: "secret-one",
		Name:     "A",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rr.Code)
	}
}

func TestLoginOutcomes(t *testing.T) {
	api, _ := newTestAPI(t)
	signup(t, api, "a@x.com", "Alice")

	ok := doJSON(t, api.mux, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "a@x.com", Password: "secret-one"})
	if ok.Code != http.StatusOK {
		t.Fatalf("valid login: status %d, body %s", ok.Code, ok.Body.String())
	}

	wrong := doJSON(t, api.mux, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "a@x.com", Password: "wrong"})
	unknown := doJSON(t, api.mux, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "nobody@x.com", Password: "wrong"})
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("rejections: %d and %d, want 401 for both", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("rejection bodies differ: %q vs %q", wrong.Body.String(), unknown.Body.String())
	}
}

func TestProfileRequiresToken(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := signup(t, api, "a@x.com", "Alice")

	missing := doJSON(t, api.mux, http.MethodGet, "/v1/auth/profile", "", nil)
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d, want 401", missing.Code)
	}

	with := doJSON(t, api.mux, http.MethodGet, "/v1/auth/profile", resp.Token.Token, nil)
	if with.Code != http.StatusOK {
		t.Fatalf("with token: status %d, body %s", with.Code, with.Body.String())
	}
	var profile auth.User
	if err := json.Unmarshal(with.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Email != "a@x.com" {
		t.Fatalf("profile email = %q", profile.Email)
	}
}

func TestUserManagementIsAdminOnly(t *testing.T) {
	api, dir := newTestAPI(t)
	admin := signup(t, api, "root@x.com", "Root")
	member := signup(t, api, "a@x.com", "Alice")
	dir.promote(admin.User.ID, auth.RoleAdmin)

	denied := doJSON(t, api.mux, http.MethodGet, "/v1/users", member.Token.Token, nil)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("member list: status %d, want 403", denied.Code)
	}

	granted := doJSON(t, api.mux, http.MethodGet, "/v1/users?name=ali", admin.Token.Token, nil)
	if granted.Code != http.StatusOK {
		t.Fatalf("admin list: status %d, body %s", granted.Code, granted.Body.String())
	}
	var listing struct {
		Users []auth.User `json:"users"`
	}
	if err := json.Unmarshal(granted.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Users) != 1 || listing.Users[0].ID != member.User.ID {
		t.Fatalf("filtered listing = %+v", listing.Users)
	}
}

func TestDeactivationKillsOutstandingTokens(t *testing.T) {
	api, dir := newTestAPI(t)
	admin := signup(t, api, "root@x.com", "Root")
	member := signup(t, api, "a@x.com", "Alice")
	dir.promote(admin.User.ID, auth.RoleAdmin)

	deactivate := doJSON(t, api.mux, http.MethodPatch, "/v1/users/"+member.User.ID, admin.Token.Token,
		map[string]any{"active": false})
	if deactivate.Code != http.StatusOK {
		t.Fatalf("deactivate: status %d, body %s", deactivate.Code, deactivate.Body.String())
	}

	// The member's still-unexpired token must stop working immediately.
	rr := doJSON(t, api.mux, http.MethodGet, "/v1/auth/profile", member.Token.Token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("profile after deactivation: status %d, want 401", rr.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	api, dir := newTestAPI(t)
	admin := signup(t, api, "root@x.com", "Root")
	member := signup(t, api, "a@x.com", "Alice")
	dir.promote(admin.User.ID, auth.RoleAdmin)

	rr := doJSON(t, api.mux, http.MethodDelete, "/v1/users/"+member.User.ID, admin.Token.Token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d, body %s", rr.Code, rr.Body.String())
	}

	again := doJSON(t, api.mux, http.MethodDelete, "/v1/users/"+member.User.ID, admin.Token.Token, nil)
	if again.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", again.Code)
	}
}

func TestUserPathRejectsMalformedID(t *testing.T) {
	api, dir := newTestAPI(t)
	admin := signup(t, api, "root@x.com", "Root")
	dir.promote(admin.User.ID, auth.RoleAdmin)

	rr := doJSON(t, api.mux, http.MethodDelete, "/v1/users/not-a-ulid", admin.Token.Token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	api, _ := newTestAPI(t)
	rr := doJSON(t, api.mux, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "gatehouse-api") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := newTestAPI(t)
	rr := doJSON(t, api.mux, http.MethodGet, "/v1/auth/login", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rr.Code)
	}
	if got := rr.Header().Get("Allow"); got != http.MethodPost {
		t.Fatalf("Allow = %q, want %q", got, http.MethodPost)
	}
}
