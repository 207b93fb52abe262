// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Project routes under the base path
// (typically "/api/v1/project" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/structure", h.ServeStructure)
	r.Get("/{id}", h.ServeProject)

	// owners (or DATA_MANAGEMENT) only; checked per project in the handlers
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequirePermission(permissions.DataEdit))

		pr.Post("/", h.HandleAdd)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Get("/{id}/log", h.ServeLog)
	})

	return r
}
