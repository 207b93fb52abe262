// internal/app/system/validate/userref.go
package validate

import (
	"net/mail"
	"strings"

	"github.com/dalemusser/datatracker/internal/domain/models"
)

// UserRef is a reference to a user: either the identifier of a registered
// user or the email address of someone who has not registered yet.
// The variant is decided once, by ParseUserRef.
type UserRef struct {
	id    string
	email string
}

// ParseUserRef classifies s as an identifier or an email address.
func ParseUserRef(s string) (UserRef, error) {
	if models.IsID(s) {
		return UserRef{id: s}, nil
	}
	if IsEmail(s) {
		return UserRef{email: s}, nil
	}
	return UserRef{}, fail(ErrInvalidValue, "neither an identifier nor an email (%q)", s)
}

// IsEmail reports whether the reference holds an email address.
func (r UserRef) IsEmail() bool { return r.email != "" }

// ID returns the user identifier ("" for email references).
func (r UserRef) ID() string { return r.id }

// Email returns the email address ("" for identifier references).
func (r UserRef) Email() string { return r.email }

func (r UserRef) String() string {
	if r.IsEmail() {
		return r.email
	}
	return r.id
}

// ParseUserRefs parses a list of user references. Validation must have
// passed already; the error return covers callers that skip it.
func ParseUserRefs(v any) ([]UserRef, error) {
	items, ok := asList(v)
	if !ok {
		return nil, fail(ErrWrongType, "must be a list")
	}
	refs := make([]UserRef, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fail(ErrWrongType, "entries must be strings (%v)", it)
		}
		ref, err := ParseUserRef(s)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// IsEmail reports whether s is a bare address (no display name) with a
// dotted domain, e.g. "name@example.com".
func IsEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]
	if strings.Contains(local, "@") || strings.ContainsAny(s, " \t") {
		return false
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") ||
		strings.HasSuffix(domain, ".") || strings.Contains(domain, "..") {
		return false
	}
	return true
}
