// internal/app/features/datasets/routes.go
package datasets

import (
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Dataset routes under the base path
// (typically "/api/v1/dataset" from bootstrap). Datasets are created
// through their order (POST /order/{id}/dataset).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// public reads
	r.Get("/", h.ServeList)
	r.Get("/random", h.ServeRandom)
	r.Get("/random/{n}", h.ServeRandom)
	r.Get("/structure", h.ServeStructure)
	r.Get("/{id}", h.ServeDataset)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/{id}/log", h.ServeLog)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
