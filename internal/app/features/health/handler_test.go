package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/datatracker/internal/app/features/health"
	dbstatusstore "github.com/dalemusser/datatracker/internal/app/store/dbstatus"
	"github.com/dalemusser/datatracker/internal/app/system/dbinit"
	"github.com/dalemusser/datatracker/internal/testutil"
	"go.uber.org/zap"
)

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Schema   *int   `json:"schema_version"`
	Message  string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) healthBody {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var body healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Database != "connected" {
		t.Errorf("database: got %q, want %q", body.Database, "connected")
	}
	return body
}

func TestServe_Uninitialized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	body := serve(t, health.NewHandler(db, zap.NewNop()))

	if body.Status != "degraded" || body.Message != "Database not initialized" {
		t.Errorf("got %+v", body)
	}
}

func TestServe_CurrentSchema(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := dbstatusstore.New(db).SetVersion(ctx, dbinit.Version); err != nil {
		t.Fatalf("set version: %v", err)
	}
	body := serve(t, health.NewHandler(db, zap.NewNop()))

	if body.Status != "ok" {
		t.Errorf("status: got %q, want ok", body.Status)
	}
	if body.Schema == nil || *body.Schema != dbinit.Version {
		t.Errorf("schema_version: got %v, want %d", body.Schema, dbinit.Version)
	}
}
