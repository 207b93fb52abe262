// internal/app/features/orders/routes.go
package orders

import (
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Order routes under the base path
// (typically "/api/v1/order" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequirePermission(permissions.DataEdit))

		pr.Get("/", h.ServeList)
		pr.Get("/structure", h.ServeStructure)

		// orders by editor (own, or anyone's with OWNERS_READ)
		pr.Get("/user", h.ServeListByUser)
		pr.Get("/user/{id}", h.ServeListByUser)

		pr.Get("/{id}", h.ServeOrder)
		pr.Get("/{id}/log", h.ServeLog)

		pr.Post("/", h.HandleAdd)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)

		pr.Post("/{id}/dataset", h.HandleAddDataset)
	})

	return r
}
