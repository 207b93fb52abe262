// internal/app/features/collections/view.go
package collections

import (
	"context"
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/features/shared/entity"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.uber.org/zap"
)

// ServeList lists all collections.
//
// Route: GET /collection
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.records.List(ctx, models.KindCollection, nil, entity.ListProjection)
	if err != nil {
		entity.Fail(w, h.Log, err, "list collections failed")
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"collections": list})
}

// ServeStructure returns an empty collection document.
//
// Route: GET /collection/structure
func (h *Handler) ServeStructure(w http.ResponseWriter, r *http.Request) {
	h.Resp.JSON(w, http.StatusOK, map[string]any{"collection": entity.Template(models.KindCollection)})
}

// ServeCollection returns one collection with its datasets as
// {_id, title}. Editors are expanded for editors and DATA_MANAGEMENT and
// left out for everyone else.
//
// Route: GET /collection/{id}
func (h *Handler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	col, err := h.records.Get(ctx, models.KindCollection, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load collection failed", zap.String("collection_id", id))
		return
	}

	if entity.CanEdit(u, col, editorField) {
		editors, err := entity.Users(ctx, h.users, col.Strings(editorField))
		if err != nil {
			entity.Fail(w, h.Log, err, "expand editors failed", zap.String("collection_id", id))
			return
		}
		col[editorField] = editors
	} else {
		delete(col, editorField)
	}

	datasets, err := entity.Datasets(ctx, h.records, col.Strings("datasets"))
	if err != nil {
		entity.Fail(w, h.Log, err, "expand datasets failed", zap.String("collection_id", id))
		return
	}
	col["datasets"] = datasets

	h.Resp.Resource(w, r, http.StatusOK, map[string]any{"collection": col})
}

// ServeLog returns the change history of a collection.
//
// Route: GET /collection/{id}/log
func (h *Handler) ServeLog(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	col, err := h.records.Get(ctx, models.KindCollection, id)
	if err != nil && !entity.IsNotFound(err) {
		entity.Fail(w, h.Log, err, "load collection failed", zap.String("collection_id", id))
		return
	}
	if !entity.CanEdit(u, col, editorField) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	doc, err := entity.LogDocument(ctx, h.logs, models.KindCollection, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load collection log failed", zap.String("collection_id", id))
		return
	}
	h.Resp.JSON(w, http.StatusOK, doc)
}
