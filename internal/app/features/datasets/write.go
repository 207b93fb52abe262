// internal/app/features/datasets/write.go
package datasets

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

// HandleUpdate changes fields of a dataset. A body that repeats the stored
// values is accepted without writing a log entry.
//
// Route: PATCH /dataset/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	ds, err := h.records.Get(ctx, models.KindDataset, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load dataset failed", zap.String("dataset_id", id))
		return
	}
	order, err := h.owningOrder(ctx, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load owning order failed", zap.String("dataset_id", id))
		return
	}
	if !canEdit(u, order) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindDataset, ds)
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	if !entity.Differs(indata, ds) {
		respond.Status(w, http.StatusOK)
		return
	}
	ds.Merge(indata)

	if err := h.Changes.Commit(ctx, u.ID, models.KindDataset, models.ActionEdit, "Dataset updated", ds); err != nil {
		entity.Fail(w, h.Log, err, "dataset update failed", zap.String("dataset_id", id))
		return
	}
	respond.Status(w, http.StatusOK)
}

// HandleDelete deletes a dataset and removes it from every order,
// collection and project listing it; each of those edits is logged.
//
// Route: DELETE /dataset/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete dataset")
	defer cancel()

	exists, err := h.records.Exists(ctx, models.KindDataset, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load dataset failed", zap.String("dataset_id", id))
		return
	}
	if !exists {
		respond.Status(w, http.StatusNotFound)
		return
	}
	order, err := h.owningOrder(ctx, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load owning order failed", zap.String("dataset_id", id))
		return
	}
	if !canEdit(u, order) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	if err := h.Changes.Delete(ctx, u.ID, models.KindDataset, id, "Dataset deleted"); err != nil {
		entity.Fail(w, h.Log, err, "dataset deletion failed", zap.String("dataset_id", id))
		return
	}
	respond.Status(w, http.StatusOK)
}
