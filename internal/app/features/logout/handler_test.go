package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/datatracker/internal/app/features/logout"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *logout.Handler {
	t.Helper()
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	// nil audit logger is a no-op
	return logout.NewHandler(sessionMgr, nil, logger)
}

func TestServeLogout_EmptyOK(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"anonymous", httptest.NewRequest(http.MethodGet, "/api/v1/logout", nil)},
		{"signed in", testutil.NewAuthenticatedRequest(http.MethodGet, "/api/v1/logout", testutil.PlainUser())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			handler.ServeLogout(rec, tt.req)
			rec.AssertStatus(t, http.StatusOK)
			rec.AssertEmptyBody(t)
		})
	}
}

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, httptest.NewRequest(http.MethodGet, "/api/v1/logout", nil))

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge >= 0 {
				t.Errorf("session cookie MaxAge: got %d, want < 0", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected the session cookie to be cleared")
	}
}
