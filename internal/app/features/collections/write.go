// internal/app/features/collections/write.go
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

var userListFields = []string{editorField}

// HandleAdd creates a collection. Without editors the creator becomes the
// only editor.
//
// Route: POST /collection
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindCollection, models.NewCollection())
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	col := models.NewCollection()
	err := h.Changes.Atomic(ctx, func(ctx context.Context) error {
		if err := h.Changes.ResolveUserFields(ctx, u.ID, indata, userListFields, nil); err != nil {
			return err
		}
		col.Merge(indata)
		if len(col.Strings(editorField)) == 0 {
			col[editorField] = []any{u.ID}
		}
		return h.Changes.Commit(ctx, u.ID, models.KindCollection, models.ActionAdd, "Collection added", col)
	})
	if err != nil {
		entity.Fail(w, h.Log, err, "collection insert failed", zap.String("collection_id", col.ID()))
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"_id": col.ID()})
}

// HandleUpdate changes fields of a collection; unchanged values are not
// logged.
//
// Route: PATCH /collection/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	col, err := h.records.Get(ctx, models.KindCollection, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load collection failed", zap.String("collection_id", id))
		return
	}
	if !entity.CanEdit(u, col, editorField) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindCollection, col)
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	// unchanged values are neither written nor logged
	err = h.Changes.Atomic(ctx, func(ctx context.Context) error {
		if err := h.Changes.ResolveUserFields(ctx, u.ID, indata, userListFields, nil); err != nil {
			return err
		}
		if !entity.Differs(indata, col) {
			return nil
		}
		col.Merge(indata)
		if len(col.Strings(editorField)) == 0 {
			col[editorField] = []any{u.ID}
		}
		return h.Changes.Commit(ctx, u.ID, models.KindCollection, models.ActionEdit, "Collection updated", col)
	})
	if err != nil {
		entity.Fail(w, h.Log, err, "collection update failed", zap.String("collection_id", id))
		return
	}
	respond.Status(w, http.StatusOK)
}

// HandleDelete deletes a collection. Datasets are not touched.
//
// Route: DELETE /collection/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	col, err := h.records.Get(ctx, models.KindCollection, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load collection failed", zap.String("collection_id", id))
		return
	}
	if !entity.CanEdit(u, col, editorField) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	if err := h.Changes.Delete(ctx, u.ID, models.KindCollection, id, "Collection deleted"); err != nil {
		entity.Fail(w, h.Log, err, "collection deletion failed", zap.String("collection_id", id))
		return
	}
	respond.Status(w, http.StatusOK)
}
