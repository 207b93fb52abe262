package admin_test

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/dalemusser/datatracker/internal/app/admin"
	auditstore "github.com/dalemusser/datatracker/internal/app/store/audit"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/dbinit"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/dalemusser/datatracker/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func TestInitDBAndStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := admin.New(db, zap.NewNop())

	st, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Started || st.Current() {
		t.Errorf("fresh database status = %+v", st)
	}

	out, err := a.InitDB(ctx)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if !out.Initialized || out.DefaultUser == nil || out.DefaultUser.APIKey == "" {
		t.Fatalf("outcome = %+v", out)
	}

	st, err = a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Changes == 0 {
		t.Error("no change log entries after init")
	}
	want := admin.Status{Started: true, Finished: true, Version: dbinit.Version, Expected: dbinit.Version, Users: 1, Changes: st.Changes}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}

	out, err = a.InitDB(ctx)
	if err != nil {
		t.Fatalf("second InitDB: %v", err)
	}
	if out.Initialized {
		t.Error("second InitDB initialized again")
	}
}

func TestAddUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := admin.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)

	id, err := a.AddUser(ctx, "  Ada  Lovelace ", "Ada@Example.com", []string{permissions.DataManagement})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	u, err := userstore.New(db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Errorf("email = %q", u.Email)
	}
	if diff := cmp.Diff([]string{id + "::local"}, u.AuthIDs); diff != "" {
		t.Errorf("auth_ids (-want +got):\n%s", diff)
	}
	if n := fixtures.CountLogs(ctx, models.KindUser, id); n != 1 {
		t.Errorf("log entries = %d, want 1", n)
	}

	tests := []struct {
		name  string
		email string
		perms []string
		want  error
	}{
		{"duplicate email", "ADA@example.com", nil, admin.ErrEmailInUse},
		{"no email", "  ", nil, admin.ErrEmailRequired},
		{"unknown permission", "new@example.com", []string{"ROOT"}, admin.ErrUnknownPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.AddUser(ctx, "x", tt.email, tt.perms); !errors.Is(err, tt.want) {
				t.Errorf("AddUser() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIssueAPIKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := admin.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)

	created := fixtures.CreateUser(ctx, "Key Holder", "holder@example.com")

	for _, ref := range []string{"holder@example.com", created.ID} {
		id, key, err := a.IssueAPIKey(ctx, ref)
		if err != nil {
			t.Fatalf("IssueAPIKey(%q): %v", ref, err)
		}
		if id != created.ID {
			t.Errorf("IssueAPIKey(%q) user = %s, want %s", ref, id, created.ID)
		}
		u, err := userstore.New(db).GetByID(ctx, id)
		if err != nil {
			t.Fatalf("load user: %v", err)
		}
		if !auth.VerifyAPIKey(u.APIKey, u.APISalt, key) {
			t.Errorf("stored hash does not match the issued key")
		}
	}
	if n := fixtures.CountLogs(ctx, models.KindUser, created.ID); n != 2 {
		t.Errorf("log entries = %d, want 2", n)
	}

	if _, _, err := a.IssueAPIKey(ctx, "nobody@example.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("unknown user error = %v", err)
	}
}

func TestAuditEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := admin.New(db, zap.NewNop())

	id, err := a.AddUser(ctx, "Audited", "audited@example.com", nil)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, _, err := a.IssueAPIKey(ctx, id); err != nil {
		t.Fatalf("IssueAPIKey: %v", err)
	}
	if _, err := a.AddUser(ctx, "Other", "other@example.com", nil); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	types := func(events []auditstore.Event) []string {
		var out []string
		for _, e := range events {
			out = append(out, e.EventType)
		}
		return out
	}

	tests := []struct {
		name string
		q    admin.AuditQuery
		want int
	}{
		{"recent", admin.AuditQuery{}, 3},
		{"recent limited", admin.AuditQuery{Limit: 1}, 1},
		{"by email", admin.AuditQuery{User: "Audited@Example.com"}, 2},
		{"by id", admin.AuditQuery{User: id}, 2},
		{"unknown user", admin.AuditQuery{User: "ghost@example.com"}, 0},
		{"failed logins", admin.AuditQuery{FailedSince: time.Now().Add(-time.Hour)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := a.AuditEvents(ctx, tt.q)
			if err != nil {
				t.Fatalf("AuditEvents: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events %v, want %d", len(events), types(events), tt.want)
			}
		})
	}

	events, _ := a.AuditEvents(ctx, admin.AuditQuery{User: id})
	got := types(events)
	sort.Strings(got)
	want := []string{auditstore.EventAPIKeyIssued, auditstore.EventUserCreated}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event types (-want +got):\n%s", diff)
	}
}
