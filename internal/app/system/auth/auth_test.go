package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		logger,
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

type fakeFetcher struct {
	users map[string]*auth.SessionUser
	creds map[string]*auth.APICredentials
}

func (f fakeFetcher) FetchUser(_ context.Context, id string) *auth.SessionUser {
	return f.users[id]
}

func (f fakeFetcher) FetchAPICredentials(_ context.Context, ref string) *auth.APICredentials {
	return f.creds[ref]
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireSignedIn(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/order", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no user: status = %d, want 401", rec.Code)
	}

	req := auth.WithTestUser(httptest.NewRequest("GET", "/api/v1/order", nil), &auth.SessionUser{ID: "u1"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with user: status = %d, want 200", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequirePermission(permissions.DataEdit)(okHandler())

	tests := []struct {
		name string
		user *auth.SessionUser
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"no permissions", &auth.SessionUser{ID: "u1"}, http.StatusForbidden},
		{"direct", &auth.SessionUser{ID: "u1", Permissions: []string{permissions.DataEdit}}, http.StatusOK},
		{"implied", &auth.SessionUser{ID: "u1", Permissions: []string{permissions.DataManagement}}, http.StatusOK},
		{"unrelated", &auth.SessionUser{ID: "u1", Permissions: []string{permissions.UserManagement}}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/order", nil)
			if tt.user != nil {
				req = auth.WithTestUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLoginThenLoadSessionUser(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{users: map[string]*auth.SessionUser{
		"u1": {ID: "u1", Name: "Ada", Permissions: []string{permissions.DataEdit}},
	}})

	// Log in and capture the cookie.
	rec := httptest.NewRecorder()
	if err := sm.Login(rec, httptest.NewRequest("GET", "/", nil), "u1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Login set no cookie")
	}

	var got *auth.SessionUser
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/api/v1/user/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.ID != "u1" || got.ViaAPIKey {
		t.Fatalf("CurrentUser = %+v, want u1 via session", got)
	}
}

func TestLoadSessionUser_Anonymous(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{})

	called := false
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := auth.CurrentUser(r); ok {
			t.Error("anonymous request has a user")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/dataset", nil))
	if !called {
		t.Fatal("next handler not called")
	}
}

func TestLoadSessionUser_APIKey(t *testing.T) {
	key, salt, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	hash, err := auth.HashAPIKey(key, salt)
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}

	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{creds: map[string]*auth.APICredentials{
		"ada@example.com": {User: &auth.SessionUser{ID: "u1", Email: "ada@example.com"}, Hash: hash, Salt: salt},
	}})
	limiter := ratelimit.New(2, time.Hour)
	defer limiter.Close()
	sm.SetAPIKeyLimiter(limiter)

	var got *auth.SessionUser
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
		w.WriteHeader(http.StatusOK)
	}))

	addr := "192.0.2.7:4000"
	send := func(user, k string) int {
		req := httptest.NewRequest("GET", "/api/v1/order", nil)
		req.RemoteAddr = addr
		req.Header.Set(auth.HeaderAPIUser, user)
		req.Header.Set(auth.HeaderAPIKey, k)
		rec := httptest.NewRecorder()
		got = nil
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("ada@example.com", key); code != http.StatusOK || got == nil || !got.ViaAPIKey {
		t.Fatalf("valid key: status %d user %+v", code, got)
	}
	if code := send("ada@example.com", "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status %d, want 401", code)
	}
	if code := send("nobody@example.com", key); code != http.StatusUnauthorized {
		t.Fatalf("unknown user: status %d, want 401", code)
	}
	// Two failures used the burst; further attempts are refused outright.
	if code := send("ada@example.com", key); code != http.StatusTooManyRequests {
		t.Fatalf("after failures: status %d, want 429", code)
	}

	// A valid key restores the full burst for its client.
	addr = "192.0.2.8:4000"
	for i, tc := range []struct {
		key  string
		want int
	}{
		{"wrong", http.StatusUnauthorized},
		{key, http.StatusOK},
		{"wrong", http.StatusUnauthorized},
		{"wrong", http.StatusUnauthorized},
		{key, http.StatusTooManyRequests},
	} {
		if code := send("ada@example.com", tc.key); code != tc.want {
			t.Fatalf("attempt %d: status %d, want %d", i+1, code, tc.want)
		}
	}
}

func TestVerifyAPIKey(t *testing.T) {
	hash, err := auth.HashAPIKey("1234", "fedcba09")
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}
	if !auth.VerifyAPIKey(hash, "fedcba09", "1234") {
		t.Error("matching key rejected")
	}
	if auth.VerifyAPIKey(hash, "other", "1234") {
		t.Error("key with wrong salt accepted")
	}
	if auth.VerifyAPIKey("", "", "") {
		t.Error("empty hash accepted")
	}
}

func TestLogout_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	if err := sm.Logout(rec, httptest.NewRequest("GET", "/api/v1/logout", nil)); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge >= 0 {
			t.Errorf("cookie MaxAge = %d, want negative", c.MaxAge)
		}
	}
}
