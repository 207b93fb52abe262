// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all User routes under the base path
// (typically "/api/v1/user" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/permissions", h.ServePermissions)
	r.Get("/structure", h.ServeStructure)
	r.Get("/me", h.ServeMe)

	// own account; /{id}/log and /{id}/actions also serve the caller's own id
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Patch("/me", h.HandleUpdateMe)
		pr.Post("/me/apikey", h.HandleAPIKey)
		pr.Get("/me/log", h.ServeLog)
		pr.Get("/me/actions", h.ServeActions)
		pr.Get("/{id}/log", h.ServeLog)
		pr.Get("/{id}/actions", h.ServeActions)
	})

	r.With(sm.RequirePermission(permissions.UserSearch)).Get("/", h.ServeList)
	r.With(sm.RequirePermission(permissions.UserAdd)).Post("/", h.HandleAdd)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequirePermission(permissions.UserManagement))

		pr.Get("/{id}", h.ServeUser)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/apikey", h.HandleAPIKey)
	})

	return r
}
