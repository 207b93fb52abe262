package normalize

import "testing"

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"email lowercased", Email, "  Ada@Example.ORG ", "ada@example.org"},
		{"email blank", Email, "   ", ""},
		{"name keeps case", Name, "  Ada Lovelace  ", "Ada Lovelace"},
		{"name inner spaces kept", Name, "Ada  Lovelace", "Ada  Lovelace"},
		{"query param trimmed", QueryParam, " 5f0c\t", "5f0c"},
		{"query param keeps case", QueryParam, "Ada@Example.org", "Ada@Example.org"},
		{"provider lowercased", Provider, " ELIXIR ", "elixir"},
		{"provider blank", Provider, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
