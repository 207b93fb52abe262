package collections_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/datatracker/internal/app/features/collections"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/dalemusser/datatracker/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*collections.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	rec := changes.NewRecorder(db, nil, logger)
	return collections.NewHandler(db, rec, respond.Normalizer{}, logger), testutil.NewFixtures(t, db)
}

func TestHandleAdd_ResolvesEmailEditors(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := testutil.EditorUser()
	ds := fixtures.CreateDataset(ctx, "grouped")
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/collection", map[string]any{
		"title":    "Reference genomes",
		"editors":  []string{"curator@example.com"},
		"datasets": []string{ds.ID()},
	})
	rec := testutil.NewRecorder()
	handler.HandleAdd(rec, testutil.WithUser(req, creator))
	rec.AssertStatus(t, http.StatusOK)

	id, _ := rec.DecodeJSON(t)["id"].(string)
	col := fixtures.Get(ctx, models.KindCollection, id)
	if col == nil {
		t.Fatal("collection not stored")
	}
	editors := col.Strings("editors")
	if len(editors) != 1 || !models.IsID(editors[0]) {
		t.Fatalf("editors = %v, want one user id", editors)
	}
	if u := fixtures.Get(ctx, models.KindUser, editors[0]); u.String("email") != "curator@example.com" {
		t.Errorf("editor user = %v", u)
	}
	if diff := cmp.Diff([]string{ds.ID()}, col.Strings("datasets")); diff != "" {
		t.Errorf("datasets (-want +got):\n%s", diff)
	}
}

func TestServeCollection_EditorsVisibility(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	editor := fixtures.CreateUser(ctx, "Eve Editor", "eve@example.com")
	col := fixtures.CreateCollection(ctx, "visible", []string{editor.ID})

	tests := []struct {
		name        string
		req         *http.Request
		wantEditors bool
	}{
		{"anonymous", testutil.NewRequest(http.MethodGet, "/"), false},
		{"plain user", testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.PlainUser()), false},
		{"editor", testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.FromUser(editor)), true},
		{"data manager", testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.DataManager()), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			handler.ServeCollection(rec, testutil.WithChiURLParam(tt.req, "id", col.ID()))
			rec.AssertStatus(t, http.StatusOK)
			got := rec.DecodeJSON(t)["collection"].(map[string]any)
			editors, ok := got["editors"]
			if ok != tt.wantEditors {
				t.Fatalf("editors present = %v, want %v", ok, tt.wantEditors)
			}
			if ok {
				want := []any{map[string]any{"id": editor.ID, "name": "Eve Editor", "email": "eve@example.com"}}
				if diff := cmp.Diff(want, editors); diff != "" {
					t.Errorf("editors (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestHandleUpdate(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	editor := testutil.EditorUser()
	col := fixtures.CreateCollection(ctx, "same", []string{editor.ID})

	tests := []struct {
		name     string
		user     testutil.TestUser
		body     map[string]any
		want     int
		wantLogs int64
	}{
		{"unchanged", editor, map[string]any{"title": "same"}, http.StatusOK, 0},
		{"changed", editor, map[string]any{"tags": []string{"genomics"}}, http.StatusOK, 1},
		{"not an editor", testutil.EditorUser(), map[string]any{"title": "mine now"}, http.StatusForbidden, 1},
		{"bad tag", editor, map[string]any{"tags": []string{"x"}}, http.StatusBadRequest, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPatch, "/", tt.body)
			req = testutil.WithChiURLParam(testutil.WithUser(req, tt.user), "id", col.ID())
			rec := testutil.NewRecorder()
			handler.HandleUpdate(rec, req)
			rec.AssertStatus(t, tt.want)
			if n := fixtures.CountLogs(ctx, models.KindCollection, col.ID()); n != tt.wantLogs {
				t.Errorf("log entries = %d, want %d", n, tt.wantLogs)
			}
		})
	}
}

func TestHandleDelete_KeepsDatasets(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ds := fixtures.CreateDataset(ctx, "kept")
	col := fixtures.CreateCollection(ctx, "gone", nil, ds.ID())

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/", testutil.DataManager())
	rec := testutil.NewRecorder()
	handler.HandleDelete(rec, testutil.WithChiURLParam(req, "id", col.ID()))
	rec.AssertStatus(t, http.StatusOK)

	if fixtures.Get(ctx, models.KindCollection, col.ID()) != nil {
		t.Error("collection still stored")
	}
	if fixtures.Get(ctx, models.KindDataset, ds.ID()) == nil {
		t.Error("dataset deleted with its collection")
	}
}
