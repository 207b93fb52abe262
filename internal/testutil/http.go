package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/domain/models"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID          string
	Name        string
	Email       string
	Permissions []string
}

// FromUser turns a stored fixture user into a TestUser.
func FromUser(u models.User) TestUser {
	return TestUser{ID: u.ID, Name: u.Name, Email: u.Email, Permissions: u.Permissions}
}

// PlainUser returns a signed-in user without permissions.
func PlainUser() TestUser {
	return TestUser{ID: models.NewID(), Name: "Test User", Email: "user@test.com"}
}

// EditorUser returns a user holding DATA_EDIT.
func EditorUser() TestUser {
	return TestUser{
		ID:          models.NewID(),
		Name:        "Test Editor",
		Email:       "editor@test.com",
		Permissions: []string{permissions.DataEdit},
	}
}

// DataManager returns a user holding DATA_MANAGEMENT.
func DataManager() TestUser {
	return TestUser{
		ID:          models.NewID(),
		Name:        "Test Data Manager",
		Email:       "steward@test.com",
		Permissions: []string{permissions.DataManagement},
	}
}

// UserManager returns a user holding USER_MANAGEMENT.
func UserManager() TestUser {
	return TestUser{
		ID:          models.NewID(),
		Name:        "Test User Manager",
		Email:       "admin@test.com",
		Permissions: []string{permissions.UserManagement},
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Permissions: user.Permissions,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is body encoded as JSON.
// A string body is sent verbatim.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf []byte
	switch b := body.(type) {
	case string:
		buf = []byte(b)
	default:
		var err error
		if buf, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertEmptyBody checks that an error response carries no detail.
func (r *ResponseRecorder) AssertEmptyBody(t interface{ Errorf(string, ...any) }) {
	if r.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON decodes the response body into a generic map.
func (r *ResponseRecorder) DecodeJSON(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(r.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
	return out
}
