package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/datatracker/internal/app/store/audit"
	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testUserID = "0b7c2f8e-5d1a-4c3e-9f00-3a1b2c3d4e5f"

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	// nil logger methods are no-ops
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, testUserID, "apikey")
	logger.APIKeyRejected(ctx, req, "someone@example.com")
	logger.Logout(ctx, req, testUserID)
}

func TestLogger_LogOnlyWritesZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: "log", Admin: "off"})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := httptest.NewRequest("POST", "/api/v1/login/apikey", nil)
	req.Header.Set("X-Real-IP", "203.0.113.9")

	logger.LoginSuccess(ctx, req, testUserID, "apikey")
	logger.APIKeyRejected(ctx, req, "mallory@example.com")
	logger.APIKeyIssued(ctx, req, testUserID, testUserID) // admin is off

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d zap entries, want 2", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.WarnLevel {
		t.Errorf("levels = %v, %v; want info then warn", entries[0].Level, entries[1].Level)
	}
	fields := entries[1].ContextMap()
	if fields["event_type"] != audit.EventAPIKeyRejected {
		t.Errorf("event_type = %v, want %q", fields["event_type"], audit.EventAPIKeyRejected)
	}
	if fields["ip"] != "203.0.113.9" {
		t.Errorf("ip = %v, want 203.0.113.9", fields["ip"])
	}
	if fields["detail_api_user"] != "mallory@example.com" {
		t.Errorf("detail_api_user = %v", fields["detail_api_user"])
	}
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "off", Admin: "off"})
	logger.LoginSuccess(ctx, nil, testUserID, "developer")

	events, err := store.GetByUser(ctx, testUserID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no events when config is 'off'")
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db", Admin: "db"})
	req := httptest.NewRequest("GET", "/api/v1/login/oidc/elixir/callback", nil)

	logger.OIDCUserProvisioned(ctx, req, testUserID, "sub-1::elixir")
	logger.APIKeyIssued(ctx, req, "", testUserID)

	events, err := store.GetByUser(ctx, testUserID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, e := range events {
		if e.UserAgent == "" && e.IP == "" {
			t.Errorf("event %s has no request context", e.EventType)
		}
	}
}

func TestLogger_DatabaseInitialized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "all", Admin: "all"})
	logger.DatabaseInitialized(ctx, testUserID)

	n, err := store.CountByFilter(ctx, audit.QueryFilter{EventType: audit.EventDatabaseInited})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountByFilter() = %d, want 1", n)
	}
}
