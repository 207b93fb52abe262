// internal/app/features/developer/routes.go
package developer

import (
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the developer routes (typically under "/api/v1/developer").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/login/{authID}", h.ServeLogin)
	r.Get("/hello", h.ServeHello)
	r.With(sm.RequireSignedIn).Get("/loginhello", h.ServeHello)
	r.With(sm.RequirePermission(permissions.DataManagement)).Get("/stewardhello", h.ServeHello)
	r.With(sm.RequirePermission(permissions.UserManagement)).Get("/adminhello", h.ServeHello)

	// reaching these means the CSRF middleware accepted the request
	r.Post("/csrftest", h.ServeHello)
	r.Put("/csrftest", h.ServeHello)
	r.Delete("/csrftest", h.ServeHello)

	return r
}
