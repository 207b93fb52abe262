// internal/app/system/validate/errors.go
package validate

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned for a key with no registered validator, or a
	// key that is not part of the entity being written.
	ErrUnknownField = errors.New("unknown field")
	// ErrProhibitedField is returned for keys a client may never set (e.g. _id).
	ErrProhibitedField = errors.New("prohibited field")
	// ErrWrongType is returned when a value has the wrong JSON type.
	ErrWrongType = errors.New("wrong type")
	// ErrInvalidValue is returned when a value has the right type but bad content.
	ErrInvalidValue = errors.New("invalid value")
	// ErrMissingReference is returned when a referenced user or dataset does not exist.
	ErrMissingReference = errors.New("referenced entry does not exist")
	// ErrLookupFailed is returned when a reference could not be checked
	// because the store failed. Callers should treat it as a server error.
	ErrLookupFailed = errors.New("reference lookup failed")
)

// FieldError describes why one field failed validation.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fail(kind error, format string, args ...any) error {
	return &FieldError{Reason: fmt.Sprintf(format, args...), Err: kind}
}

// withField stamps the field name on err when it is a *FieldError.
func withField(name string, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		if fe.Field == "" {
			fe.Field = name
		}
		return fe
	}
	return &FieldError{Field: name, Reason: err.Error(), Err: err}
}
