// internal/app/system/auth/csrf.go
package auth

import (
	"net/http"

	"github.com/gorilla/csrf"
)

const (
	// CSRFCookieName holds the masked CSRF secret.
	CSRFCookieName = "_csrf_token"
	// CSRFHeader carries the token in both directions: responses expose the
	// current token, unsafe requests must send it back.
	CSRFHeader = "X-CSRF-Token"
)

// CSRF protects cookie-authenticated unsafe requests. Requests carrying API
// key headers are exempt because they do not rely on ambient cookies. Every
// response exposes the current token in the X-CSRF-Token header.
func CSRF(key []byte, secure bool, trustedOrigins ...string) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName(CSRFCookieName),
		csrf.RequestHeader(CSRFHeader),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(trustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})),
	)

	return func(next http.Handler) http.Handler {
		expose := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CSRFHeader, csrf.Token(r))
			next.ServeHTTP(w, r)
		})
		protected := protect(expose)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			if HasAPIKeyHeaders(r) {
				r = csrf.UnsafeSkipCheck(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}
