// internal/app/system/jsonbody/jsonbody.go
//
// Package jsonbody decodes request documents for write handlers.
package jsonbody

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBytes caps the size of a request document.
const MaxBytes = 1 << 20

var (
	// ErrMalformed is returned when the body is not valid JSON.
	ErrMalformed = errors.New("malformed JSON body")
	// ErrNotObject is returned when the body is valid JSON but not an object.
	ErrNotObject = errors.New("body is not a JSON object")
)

// Decode reads the request body as a JSON object. Clients may send the
// fields directly or wrapped in an envelope named after the entity
// ({"order": {...}}); the envelope is removed when wrapper is non-empty
// and the body has exactly that one key holding an object.
func Decode(r *http.Request, wrapper string) (map[string]any, error) {
	if r.Body == nil {
		return nil, ErrMalformed
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformed, MaxBytes)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	if wrapper != "" && len(doc) == 1 {
		if inner, ok := doc[wrapper].(map[string]any); ok {
			return inner, nil
		}
	}
	return doc, nil
}
