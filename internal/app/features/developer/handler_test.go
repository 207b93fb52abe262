package developer_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/datatracker/internal/app/features/developer"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	sm.SetUserFetcher(userstore.NewFetcher(userstore.New(db)))

	h := developer.NewHandler(db, sm, nil, respond.Normalizer{}, logger)
	return sm.LoadSessionUser(developer.Routes(h, sm)), testutil.NewFixtures(t, db)
}

func TestLoginThenHello(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "Dev", "dev@example.com")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/login/dev@example.com::local"))
	rec.AssertStatus(t, http.StatusOK)
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie")
	}

	tests := []struct {
		path string
		want int
	}{
		{"/hello", http.StatusOK},
		{"/loginhello", http.StatusOK},
		{"/stewardhello", http.StatusForbidden},
		{"/adminhello", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := testutil.NewRequest(http.MethodGet, tt.path)
			for _, c := range cookies {
				req.AddCookie(c)
			}
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, req)
			rec.AssertStatus(t, tt.want)
			if tt.want == http.StatusOK {
				if diff := cmp.Diff(map[string]any{"test": "success"}, rec.DecodeJSON(t)); diff != "" {
					t.Errorf("body (-want +got):\n%s", diff)
				}
			} else {
				rec.AssertEmptyBody(t)
			}
		})
	}
}

func TestAnonymousHello(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		path string
		want int
	}{
		{"/hello", http.StatusOK},
		{"/loginhello", http.StatusUnauthorized},
		{"/login/nobody::local", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, tt.path))
			rec.AssertStatus(t, tt.want)
		})
	}
}
