// internal/app/system/normalize/normalize.go
//
// Package normalize canonicalizes user-entered strings before they are
// compared or stored.
package normalize

import "strings"

// Email trims and lowercases an email address so lookups are
// case-insensitive.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and keeps case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// QueryParam trims a query-string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Provider canonicalizes an OIDC provider name from a URL or config key.
func Provider(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
