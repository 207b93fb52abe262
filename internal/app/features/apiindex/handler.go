// internal/app/features/apiindex/handler.go
package apiindex

import (
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Resp respond.Normalizer
}

func NewHandler(resp respond.Normalizer) *Handler {
	return &Handler{Resp: resp}
}

// ServeIndex lists the entity types of the API.
//
// Route: GET /api/v1/
func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	entities := make([]string, len(models.Kinds))
	for i, k := range models.Kinds {
		entities[i] = string(k)
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"entities": entities})
}

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeIndex)
	return r
}
