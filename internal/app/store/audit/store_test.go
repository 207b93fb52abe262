package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/datatracker/internal/app/store/audit"
	"github.com/dalemusser/datatracker/internal/testutil"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    "4f2a9c1e-0000-4000-8000-000000000001",
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, event.UserID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if len(events[0].ID) != 36 {
		t.Errorf("expected generated 36-char ID, got %q", events[0].ID)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_QueryFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true, Timestamp: now.Add(-3 * time.Hour)},
		{Category: audit.CategoryAuth, EventType: audit.EventAPIKeyRejected, Success: false, Timestamp: now.Add(-2 * time.Hour)},
		{Category: audit.CategoryAdmin, EventType: audit.EventAPIKeyIssued, Success: true, Timestamp: now.Add(-1 * time.Hour)},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int64
	}{
		{"all", audit.QueryFilter{}, 3},
		{"by category", audit.QueryFilter{Category: audit.CategoryAuth}, 2},
		{"by event type", audit.QueryFilter{EventType: audit.EventAPIKeyIssued}, 1},
		{"since", audit.QueryFilter{StartTime: ptr(now.Add(-150 * time.Minute))}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.CountByFilter(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CountByFilter failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CountByFilter() = %d, want %d", got, tt.want)
			}
		})
	}

	recent, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 3 || recent[0].EventType != audit.EventAPIKeyIssued {
		t.Errorf("GetRecent should return newest first, got %+v", recent)
	}

	failed, err := store.GetFailedLogins(ctx, now.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(failed) != 1 || failed[0].EventType != audit.EventAPIKeyRejected {
		t.Errorf("GetFailedLogins = %+v, want the rejected api key", failed)
	}
}

func ptr[T any](v T) *T { return &v }
