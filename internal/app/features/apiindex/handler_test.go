package apiindex_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/datatracker/internal/app/features/apiindex"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/testutil"
	"github.com/google/go-cmp/cmp"
)

func TestServeIndex(t *testing.T) {
	h := apiindex.NewHandler(respond.Normalizer{})

	rec := testutil.NewRecorder()
	h.ServeIndex(rec, testutil.NewRequest(http.MethodGet, "/api/v1/"))
	rec.AssertStatus(t, http.StatusOK)

	want := map[string]any{"entities": []any{"collection", "dataset", "order", "project", "user"}}
	if diff := cmp.Diff(want, rec.DecodeJSON(t)); diff != "" {
		t.Errorf("index (-want +got):\n%s", diff)
	}
}
