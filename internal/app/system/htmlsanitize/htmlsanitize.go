// internal/app/system/htmlsanitize/htmlsanitize.go
//
// Package htmlsanitize cleans user-supplied rich text before it is stored.
package htmlsanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// RichTextFields are the record fields that may carry HTML.
var RichTextFields = []string{"description"}

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("table", "tr", "td", "th", "code", "pre")
	p.AllowStyles("text-align", "width").OnElements("table", "td", "th")
	return p
}

// Sanitize strips scripts, event handlers and unsafe URLs from s, keeping
// ordinary formatting.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// tagStart matches the opening of a tag, comment or doctype. A "<" followed
// by a space or digit is a comparison, not markup.
var tagStart = regexp.MustCompile(`<[A-Za-z/!?]`)

// IsPlainText reports whether s contains no HTML tags. Plain text is stored
// verbatim, so "a < b && c > d" keeps its ampersands and brackets.
func IsPlainText(s string) bool {
	return !tagStart.MatchString(s)
}

// Fields sanitizes the named string fields of doc in place. Plain text is
// left as is; non-string values are ignored.
func Fields(doc map[string]any, fields ...string) {
	for _, f := range fields {
		s, ok := doc[f].(string)
		if !ok || IsPlainText(s) {
			continue
		}
		doc[f] = Sanitize(s)
	}
}
