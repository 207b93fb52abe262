// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit trail under the path where this router is mounted
// (typically "/api/v1/audit"). Reading it requires USER_MANAGEMENT.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequirePermission(permissions.UserManagement))

		pr.Get("/", h.ServeList)
	})

	return r
}
