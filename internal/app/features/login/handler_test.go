package login_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/datatracker/internal/app/features/login"
	"github.com/dalemusser/datatracker/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/trackerconfig"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/dalemusser/datatracker/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// fakeProvider serves the token and userinfo endpoints of an OIDC provider.
func fakeProvider(t *testing.T, sub, email, name string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code_verifier") == "" {
			http.Error(w, "missing verifier", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sub": sub, "email": email, "name": name})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, providerURL string) (*login.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	sessionMgr.SetUserFetcher(userstore.NewFetcher(userstore.New(db)))

	oidc := map[string]trackerconfig.OIDCProvider{}
	if providerURL != "" {
		oidc["Elixir"] = trackerconfig.OIDCProvider{
			ClientID:     "client",
			ClientSecret: "secret",
			AuthURL:      providerURL + "/authorize",
			TokenURL:     providerURL + "/token",
			UserinfoURL:  providerURL + "/userinfo",
		}
	}
	rec := changes.NewRecorder(db, nil, logger)
	h := login.NewHandler(db, sessionMgr, rec, nil, oidc, "http://tracker.test", respond.Normalizer{}, logger)
	return h, testutil.NewFixtures(t, db)
}

func hasSessionCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

func TestServeProviders(t *testing.T) {
	handler, _ := newTestHandler(t, "http://idp.test")

	rec := testutil.NewRecorder()
	handler.ServeProviders(rec, testutil.NewRequest(http.MethodGet, "/api/v1/login/oidc"))
	rec.AssertStatus(t, http.StatusOK)
	if diff := cmp.Diff([]any{"elixir"}, rec.DecodeJSON(t)["providers"]); diff != "" {
		t.Errorf("providers (-want +got):\n%s", diff)
	}
}

func TestServeOIDCLogin_RedirectsWithPKCE(t *testing.T) {
	handler, fixtures := newTestHandler(t, "http://idp.test")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/api/v1/login/oidc/elixir?return=/datasets"), "provider", "elixir")
	rec := testutil.NewRecorder()
	handler.ServeOIDCLogin(rec, req)
	rec.AssertStatus(t, http.StatusTemporaryRedirect)

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	if loc.Host != "idp.test" || loc.Path != "/authorize" {
		t.Errorf("redirect to %s", loc)
	}
	q := loc.Query()
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		t.Errorf("missing PKCE challenge: %v", q)
	}
	if q.Get("redirect_uri") != "http://tracker.test/api/v1/login/oidc/elixir/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}

	var st oauthstate.State
	if err := fixtures.DB().Collection("oauth_states").FindOne(ctx, bson.M{"state": q.Get("state")}).Decode(&st); err != nil {
		t.Fatalf("state not stored: %v", err)
	}
	if st.Provider != "elixir" || st.ReturnURL != "/datasets" || st.Verifier == "" {
		t.Errorf("stored state = %+v", st)
	}
}

func TestServeOIDCLogin_UnknownProvider(t *testing.T) {
	handler, _ := newTestHandler(t, "")

	req := testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/"), "provider", "nope")
	rec := testutil.NewRecorder()
	handler.ServeOIDCLogin(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func callback(t *testing.T, handler *login.Handler, state string) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewRequest(http.MethodGet, "/api/v1/login/oidc/elixir/callback?code=abc&state="+state)
	rec := testutil.NewRecorder()
	handler.ServeOIDCCallback(rec, testutil.WithChiURLParam(req, "provider", "elixir"))
	return rec
}

func saveState(t *testing.T, ctx context.Context, db *testutil.Fixtures, state string) {
	t.Helper()
	err := oauthstate.New(db.DB()).Save(ctx, oauthstate.State{
		State:     state,
		Provider:  "elixir",
		Verifier:  "verifier-verifier-verifier-verifier-verifier",
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("save state: %v", err)
	}
}

func TestServeOIDCCallback_NewUser(t *testing.T) {
	idp := fakeProvider(t, "sub-1", "First@Example.com", "First Login")
	handler, fixtures := newTestHandler(t, idp.URL)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	saveState(t, ctx, fixtures, "state-1")
	rec := callback(t, handler, "state-1")
	rec.AssertStatus(t, http.StatusSeeOther)
	if !hasSessionCookie(rec.ResponseRecorder) {
		t.Error("no session cookie set")
	}

	u, err := userstore.New(fixtures.DB()).GetByAuthID(ctx, "sub-1::elixir")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.Email != "first@example.com" || u.Name != "First Login" {
		t.Errorf("user = %+v", u)
	}
	if n := fixtures.CountLogs(ctx, models.KindUser, u.ID); n != 1 {
		t.Errorf("log entries = %d, want 1", n)
	}

	// the state is single use
	rec = callback(t, handler, "state-1")
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeOIDCCallback_AttachesToEmailUser(t *testing.T) {
	idp := fakeProvider(t, "sub-2", "known@example.com", "Known")
	handler, fixtures := newTestHandler(t, idp.URL)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	known := fixtures.CreateUser(ctx, "Known", "known@example.com")
	saveState(t, ctx, fixtures, "state-2")

	rec := callback(t, handler, "state-2")
	rec.AssertStatus(t, http.StatusSeeOther)

	got := fixtures.Get(ctx, models.KindUser, known.ID).Strings("auth_ids")
	want := []string{"known@example.com::local", "sub-2::elixir"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("auth_ids (-want +got):\n%s", diff)
	}

	var entry models.LogEntry
	if err := fixtures.DB().Collection(models.LogsCollection).FindOne(ctx, bson.M{"data._id": known.ID}).Decode(&entry); err != nil {
		t.Fatalf("no log entry: %v", err)
	}
	if entry.User != "system" || entry.Action != models.ActionEdit {
		t.Errorf("log entry = %+v", entry)
	}
}

func TestServeOIDCCallback_ProviderError(t *testing.T) {
	handler, _ := newTestHandler(t, "http://idp.test")

	req := testutil.NewRequest(http.MethodGet, "/api/v1/login/oidc/elixir/callback?error=access_denied")
	rec := testutil.NewRecorder()
	handler.ServeOIDCCallback(rec, testutil.WithChiURLParam(req, "provider", "elixir"))
	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertEmptyBody(t)
}

func TestHandleAPIKeyLogin(t *testing.T) {
	handler, fixtures := newTestHandler(t, "")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Key User", "key@example.com")
	key, salt, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	hash, err := auth.HashAPIKey(key, salt)
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}
	if err := userstore.New(fixtures.DB()).SetAPIKey(ctx, u.ID, hash, salt); err != nil {
		t.Fatalf("set key: %v", err)
	}

	tests := []struct {
		name       string
		body       string
		want       int
		wantCookie bool
	}{
		{"by email", `{"api-user": "key@example.com", "api-key": "` + key + `"}`, http.StatusOK, true},
		{"by id", `{"api-user": "` + u.ID + `", "api-key": "` + key + `"}`, http.StatusOK, true},
		{"wrong key", `{"api-user": "key@example.com", "api-key": "nope"}`, http.StatusUnauthorized, false},
		{"unknown user", `{"api-user": "ghost@example.com", "api-key": "` + key + `"}`, http.StatusUnauthorized, false},
		{"missing fields", `{}`, http.StatusUnauthorized, false},
		{"malformed", `{"api-user"`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/login/apikey", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.HandleAPIKeyLogin(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.want)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("expected empty body, got %q", rec.Body.String())
			}
			if got := hasSessionCookie(rec); got != tt.wantCookie {
				t.Errorf("session cookie = %v, want %v", got, tt.wantCookie)
			}
		})
	}
}
