package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/datatracker/internal/app/system/htmlsanitize"
)

func TestSanitize_Empty(t *testing.T) {
	result := htmlsanitize.Sanitize("")
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestSanitize_PlainText(t *testing.T) {
	result := htmlsanitize.Sanitize("Hello, World!")
	if result != "Hello, World!" {
		t.Errorf("expected plain text unchanged, got %q", result)
	}
}

func TestSanitize_SafeHTML(t *testing.T) {
	input := "<p><strong>Bold</strong> and <em>italic</em></p>"
	result := htmlsanitize.Sanitize(input)
	if result != input {
		t.Errorf("expected safe HTML preserved, got %q", result)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	input := "<p>Hello</p><script>alert('xss')</script>"
	result := htmlsanitize.Sanitize(input)
	if result != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", result)
	}
}

func TestSanitize_RemovesOnclick(t *testing.T) {
	input := `<button onclick="alert('xss')">Click</button>`
	result := htmlsanitize.Sanitize(input)
	if strings.Contains(result, "onclick") {
		t.Errorf("expected onclick attribute to be removed, got %q", result)
	}
}

func TestSanitize_RemovesJavascriptHref(t *testing.T) {
	input := `<a href="javascript:alert('xss')">Click</a>`
	result := htmlsanitize.Sanitize(input)
	if strings.Contains(result, "javascript:") {
		t.Errorf("expected javascript: href to be removed, got %q", result)
	}
}

func TestSanitize_AllowsSafeLinks(t *testing.T) {
	input := `<a href="https://example.com">Link</a>`
	result := htmlsanitize.Sanitize(input)
	// bluemonday adds rel="nofollow"
	if !strings.Contains(result, "https://example.com") {
		t.Errorf("expected safe link preserved, got %q", result)
	}
}

func TestSanitize_AllowsLists(t *testing.T) {
	input := "<ul><li>Item 1</li><li>Item 2</li></ul>"
	result := htmlsanitize.Sanitize(input)
	if result != input {
		t.Errorf("expected list preserved, got %q", result)
	}
}

func TestSanitize_RemovesIframe(t *testing.T) {
	input := `<p>Content</p><iframe src="https://evil.com"></iframe>`
	result := htmlsanitize.Sanitize(input)
	if strings.Contains(result, "iframe") {
		t.Error("expected iframe to be removed")
	}
	if !strings.Contains(result, "Content") {
		t.Error("expected safe content to be preserved")
	}
}

func TestSanitize_AllowsCodeBlocks(t *testing.T) {
	input := "<pre><code>samtools view -b</code></pre>"
	result := htmlsanitize.Sanitize(input)
	if result != input {
		t.Errorf("expected code blocks preserved, got %q", result)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello, World!", true},
		{"<p>Hello</p>", false},
		{"5 < 10", true},
		{"5 > 3", true},
		{"a < b && c > d", true},
		{"x<3 and y>2", true},
		{"<3 reads>", true},
		{"</p>", false},
		{"<!-- note -->", false},
		{"see <a href=\"https://example.org\">docs</a>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFields(t *testing.T) {
	doc := map[string]any{
		"title":       "<b>kept</b>",
		"description": "<p>Run</p><script>alert(1)</script>",
		"tags":        []any{"abc"},
	}
	htmlsanitize.Fields(doc, htmlsanitize.RichTextFields...)

	if doc["description"] != "<p>Run</p>" {
		t.Errorf("description = %q, want script removed", doc["description"])
	}
	if doc["title"] != "<b>kept</b>" {
		t.Errorf("title = %q, want untouched", doc["title"])
	}

	for _, text := range []string{"a < b && c > d", "coverage >= 30x & depth < 100", "R&D <-> QC"} {
		plain := map[string]any{"description": text}
		htmlsanitize.Fields(plain, "description")
		if plain["description"] != text {
			t.Errorf("plain description %q rewritten to %q", text, plain["description"])
		}
	}
}
