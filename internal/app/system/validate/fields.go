// internal/app/system/validate/fields.go
package validate

import (
	"context"
	"strings"

	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/domain/models"
)

// Lookup answers the existence questions that reference fields need.
// Implementations must be read-only.
type Lookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
	DatasetExists(ctx context.Context, id string) (bool, error)
}

/* ------------------------------ scalar fields ------------------------------ */

// String accepts any string.
func String(v any) error {
	if _, ok := v.(string); !ok {
		return fail(ErrWrongType, "not a string (%v)", v)
	}
	return nil
}

// Title accepts a non-empty string.
func Title(v any) error {
	s, ok := v.(string)
	if !ok {
		return fail(ErrWrongType, "not a string (%v)", v)
	}
	if s == "" {
		return fail(ErrInvalidValue, "must not be empty")
	}
	return nil
}

// Email accepts an empty string or a valid email address.
func Email(v any) error {
	s, ok := v.(string)
	if !ok {
		return fail(ErrWrongType, "not a string (%v)", v)
	}
	if s != "" && !IsEmail(s) {
		return fail(ErrInvalidValue, "not a valid email address (%q)", s)
	}
	return nil
}

// URL accepts an empty string or a string starting with http:// or https://.
func URL(v any) error {
	s, ok := v.(string)
	if !ok {
		return fail(ErrWrongType, "not a string (%v)", v)
	}
	if s != "" && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return fail(ErrInvalidValue, "urls must start with http(s):// (%q)", s)
	}
	return nil
}

/* ------------------------------- collections ------------------------------- */

// StringList accepts a list of strings.
func StringList(v any) error {
	items, ok := asList(v)
	if !ok {
		return fail(ErrWrongType, "not a list (%v)", v)
	}
	for _, it := range items {
		if _, ok := it.(string); !ok {
			return fail(ErrWrongType, "not a string (%v)", it)
		}
	}
	return nil
}

// Tags accepts a list of strings, each at least three characters long and
// without surrounding whitespace.
func Tags(v any) error {
	items, ok := asList(v)
	if !ok {
		return fail(ErrWrongType, "not a list (%v)", v)
	}
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return fail(ErrWrongType, "all list entries must be strings (%v)", it)
		}
		if err := trimmedMin3(s); err != nil {
			return err
		}
	}
	return nil
}

// Properties accepts a mapping of strings to strings where keys and values
// are at least three characters long and have no surrounding whitespace.
func Properties(v any) error {
	m, ok := asMap(v)
	if !ok {
		return fail(ErrWrongType, "not a mapping (%v)", v)
	}
	for k, val := range m {
		s, ok := val.(string)
		if !ok {
			return fail(ErrWrongType, "keys and values must be strings (%s, %v)", k, val)
		}
		if err := trimmedMin3(k); err != nil {
			return err
		}
		if err := trimmedMin3(s); err != nil {
			return err
		}
	}
	return nil
}

// Extra accepts a mapping of strings to strings.
func Extra(v any) error {
	m, ok := asMap(v)
	if !ok {
		return fail(ErrWrongType, "not a mapping (%v)", v)
	}
	for k, val := range m {
		if _, ok := val.(string); !ok {
			return fail(ErrWrongType, "values must be strings (%s, %v)", k, val)
		}
	}
	return nil
}

// ObjectList returns a check accepting a list of objects whose keys are
// exactly keys and whose values are all strings.
func ObjectList(keys ...string) func(any) error {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	return func(v any) error {
		items, ok := asList(v)
		if !ok {
			return fail(ErrWrongType, "not a list (%v)", v)
		}
		for _, it := range items {
			obj, ok := asMap(it)
			if !ok {
				return fail(ErrWrongType, "list entries must be objects (%v)", it)
			}
			if len(obj) != len(want) {
				return fail(ErrInvalidValue, "entries must have exactly the keys %v", keys)
			}
			for k, val := range obj {
				if _, ok := want[k]; !ok {
					return fail(ErrInvalidValue, "unexpected key %q", k)
				}
				if _, ok := val.(string); !ok {
					return fail(ErrWrongType, "values must be strings (%s, %v)", k, val)
				}
			}
		}
		return nil
	}
}

// Permissions accepts a list of known permission names.
func Permissions(v any) error {
	items, ok := asList(v)
	if !ok {
		return fail(ErrWrongType, "must be a list (%v)", v)
	}
	for _, it := range items {
		s, ok := it.(string)
		if !ok || !permissions.IsKnown(s) {
			return fail(ErrInvalidValue, "bad entry (%v)", it)
		}
	}
	return nil
}

/* ---------------------------- reference fields ----------------------------- */

// Datasets accepts a list of identifiers that all exist in the dataset store.
func Datasets(ctx context.Context, lookup Lookup, v any) error {
	items, ok := asList(v)
	if !ok {
		return fail(ErrWrongType, "must be a list (%v)", v)
	}
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return fail(ErrWrongType, "must be a string (%v)", it)
		}
		if !models.IsID(s) {
			return fail(ErrInvalidValue, "not a valid identifier (%q)", s)
		}
		exists, err := lookup.DatasetExists(ctx, s)
		if err != nil {
			return fail(ErrLookupFailed, "dataset %s: %v", s, err)
		}
		if !exists {
			return fail(ErrMissingReference, "dataset not in db (%s)", s)
		}
	}
	return nil
}

// User accepts an empty string or a single user reference.
func User(ctx context.Context, lookup Lookup, v any) error {
	s, ok := v.(string)
	if !ok {
		return fail(ErrWrongType, "bad data type, must be a string (%v)", v)
	}
	if s == "" {
		return nil
	}
	return userRef(ctx, lookup, s)
}

// UserList accepts a list of user references.
func UserList(ctx context.Context, lookup Lookup, v any) error {
	items, ok := asList(v)
	if !ok {
		return fail(ErrWrongType, "bad data type, must be a list (%v)", v)
	}
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return fail(ErrWrongType, "bad entry data type, must be a string (%v)", it)
		}
		if err := userRef(ctx, lookup, s); err != nil {
			return err
		}
	}
	return nil
}

// userRef accepts an email address, or an identifier of an existing user.
func userRef(ctx context.Context, lookup Lookup, s string) error {
	ref, err := ParseUserRef(s)
	if err != nil {
		return err
	}
	if ref.IsEmail() {
		return nil
	}
	exists, err := lookup.UserExists(ctx, ref.ID())
	if err != nil {
		return fail(ErrLookupFailed, "user %s: %v", ref.ID(), err)
	}
	if !exists {
		return fail(ErrMissingReference, "user not in db (%s)", ref.ID())
	}
	return nil
}

/* --------------------------------- helpers --------------------------------- */

func trimmedMin3(s string) error {
	if len(s) < 3 {
		return fail(ErrInvalidValue, "must be at least three characters (%q)", s)
	}
	if strings.TrimSpace(s) != s {
		return fail(ErrInvalidValue, "may not start nor end with whitespace (%q)", s)
	}
	return nil
}

// asList accepts any ordered sequence (JSON arrays, Go slices and arrays).
func asList(v any) ([]any, bool) {
	items, ok := models.Plain(v).([]any)
	return items, ok
}

// asMap accepts any mapping with string keys.
func asMap(v any) (map[string]any, bool) {
	m, ok := models.Plain(v).(map[string]any)
	return m, ok
}
