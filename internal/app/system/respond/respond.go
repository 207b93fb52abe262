// internal/app/system/respond/respond.go
//
// Package respond writes API responses. Bodies pass through the Normalizer
// exactly once, here at the boundary; handlers hand over stored records as
// they are. Error statuses carry no body: the reason is logged server-side.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes data, normalized, with the given status.
func (n Normalizer) JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, n.Normalize(data, ""))
}

// Resource writes a single entity with its canonical "url" added when a
// base URL is configured.
func (n Normalizer) Resource(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, status, n.Normalize(data, r.URL.Path))
}

// Status writes an empty-body response with code.
func Status(w http.ResponseWriter, code int) {
	w.WriteHeader(code)
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
