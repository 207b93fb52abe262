package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPrepareResponse(t *testing.T) {
	tests := []struct {
		name string
		in   any
		url  string
		want any
	}{
		{
			name: "top level id",
			in:   map[string]any{"_id": "v"},
			want: map[string]any{"id": "v"},
		},
		{
			name: "nested id",
			in:   map[string]any{"_id": map[string]any{"_id": "v"}},
			want: map[string]any{"id": map[string]any{"id": "v"}},
		},
		{
			name: "list of mappings",
			in:   []any{map[string]any{"_id": "a"}, map[string]any{"_id": "b", "k": 1}},
			want: []any{map[string]any{"id": "a"}, map[string]any{"id": "b", "k": 1}},
		},
		{
			name: "array becomes list",
			in:   [2]string{"x", "y"},
			want: []any{"x", "y"},
		},
		{
			name: "bson document",
			in:   bson.M{"_id": "v", "tags": bson.A{"abc"}, "inner": bson.D{{Key: "_id", Value: "w"}}},
			want: map[string]any{"id": "v", "tags": []any{"abc"}, "inner": map[string]any{"id": "w"}},
		},
		{
			name: "url added at top level only",
			in:   map[string]any{"k": "v", "sub": map[string]any{"x": "y"}},
			url:  "https://x/y",
			want: map[string]any{"k": "v", "sub": map[string]any{"x": "y"}, "url": "https://x/y"},
		},
		{
			name: "scalar passes through",
			in:   "plain",
			want: "plain",
		},
		{
			name: "other keys untouched",
			in:   map[string]any{"id_": 1, "__id": 2},
			want: map[string]any{"id_": 1, "__id": 2},
		},
		{
			name: "_id replaces a stored id",
			in:   map[string]any{"_id": "record", "id": "stored", "sub": map[string]any{"id": "x", "_id": "y"}},
			want: map[string]any{"id": "record", "sub": map[string]any{"id": "y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrepareResponse(tt.in, tt.url)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("PrepareResponse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrepareResponse_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"_id": "v", "list": []any{map[string]any{"_id": "w"}}}
	_ = PrepareResponse(in, "https://x")
	want := map[string]any{"_id": "v", "list": []any{map[string]any{"_id": "w"}}}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("input modified (-want +got):\n%s", diff)
	}
}

func TestToCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"api_key", "apiKey"},
		{"title", "title"},
		{"data_type", "dataType"},
		{"Auth_ids", "AuthIds"},
		{"cross_references", "crossReferences"},
		{"a_b_c", "aBC"},
		{"", ""},
		{"a_über", "aÜber"},
		{"titel_ärende", "titelÄrende"},
		{"ärende_typ", "ärendeTyp"},
		{"_private", "_private"},
		{"_private_key", "_privateKey"},
		{"trailing_", "trailing"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ToCamel(tt.in)
			if got != tt.want {
				t.Errorf("ToCamel(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("ToCamel(%q) produced invalid UTF-8 %q", tt.in, got)
			}
		})
	}
}

func TestCamelCaseKeys(t *testing.T) {
	in := map[string]any{
		"api_key": "k",
		"data_urls": []any{
			map[string]any{"url_kind": "raw"},
		},
		"plain": 3,
	}
	want := map[string]any{
		"apiKey": "k",
		"dataUrls": []any{
			map[string]any{"urlKind": "raw"},
		},
		"plain": 3,
	}
	if diff := cmp.Diff(want, CamelCaseKeys(in)); diff != "" {
		t.Errorf("CamelCaseKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestCamelCaseKeys_Collisions(t *testing.T) {
	in := map[string]any{
		"data_type": "converted",
		"dataType":  "in place",
		"a_b":       1,
		"a__b":      2,
		"keep":      true,
	}
	want := map[string]any{
		"dataType": "converted",
		"aB":       1, // "a__b" sorts before "a_b"
		"keep":     true,
	}
	// map order varies between runs; the result must not
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(want, CamelCaseKeys(in)); diff != "" {
			t.Fatalf("run %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestNormalizer(t *testing.T) {
	n := Normalizer{KeyCase: KeyCaseCamel, BaseURL: "https://tracker.example.org/"}
	got := n.Normalize(map[string]any{"_id": "abc", "data_type": "order"}, "/api/v1/order/abc")
	want := map[string]any{
		"id":       "abc",
		"dataType": "order",
		"url":      "https://tracker.example.org/api/v1/order/abc",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}

	plain := Normalizer{}.Normalize(map[string]any{"_id": "abc", "data_type": "order"}, "/x")
	if diff := cmp.Diff(map[string]any{"id": "abc", "data_type": "order"}, plain); diff != "" {
		t.Errorf("snake Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Normalizer{}.JSON(rec, http.StatusOK, map[string]any{"order": map[string]any{"_id": "abc"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["order"]["id"] != "abc" {
		t.Errorf("body = %v, want order.id = abc", body)
	}
}

func TestResourceAndStatus(t *testing.T) {
	n := Normalizer{BaseURL: "https://x"}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dataset/abc", nil)
	rec := httptest.NewRecorder()
	n.Resource(rec, req, http.StatusOK, map[string]any{"_id": "abc"})

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["url"] != "https://x/api/v1/dataset/abc" {
		t.Errorf("url = %q", body["url"])
	}

	rec = httptest.NewRecorder()
	Status(rec, http.StatusForbidden)
	if rec.Code != http.StatusForbidden || rec.Body.Len() != 0 {
		t.Errorf("Status = %d body %q, want 403 and empty body", rec.Code, rec.Body.String())
	}
}
