// internal/app/features/orders/write.go
package orders

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/features/shared/entity"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.uber.org/zap"
)

// HandleAdd creates an order. When no editors are given the creator
// becomes the only editor. Datasets are added through
// POST /order/{id}/dataset, never here.
//
// Route: POST /order
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindOrder, models.NewOrder(), "datasets")
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	order := models.NewOrder()
	err := h.Changes.Atomic(ctx, func(ctx context.Context) error {
		if err := h.Changes.ResolveUserFields(ctx, u.ID, indata, userListFields, userSingleFields); err != nil {
			return err
		}
		order.Merge(indata)
		if len(order.Strings("editors")) == 0 {
			order["editors"] = []any{u.ID}
		}
		return h.Changes.Commit(ctx, u.ID, models.KindOrder, models.ActionAdd, "Order added", order)
	})
	if err != nil {
		entity.Fail(w, h.Log, err, "order insert failed", zap.String("order_id", order.ID()))
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"_id": order.ID()})
}

// HandleUpdate changes fields of an order. Nothing is written or logged
// when the submitted values equal the stored ones.
//
// Route: PATCH /order/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	order, err := h.records.Get(ctx, models.KindOrder, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load order failed", zap.String("order_id", id))
		return
	}
	if !entity.CanEdit(u, order, "editors") {
		respond.Status(w, http.StatusForbidden)
		return
	}

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindOrder, order, "datasets")
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	// unchanged values are neither written nor logged
	err = h.Changes.Atomic(ctx, func(ctx context.Context) error {
		if err := h.Changes.ResolveUserFields(ctx, u.ID, indata, userListFields, userSingleFields); err != nil {
			return err
		}
		if !entity.Differs(indata, order) {
			return nil
		}
		order.Merge(indata)
		if len(order.Strings("editors")) == 0 {
			order["editors"] = []any{u.ID}
		}
		return h.Changes.Commit(ctx, u.ID, models.KindOrder, models.ActionEdit, "Order updated", order)
	})
	if err != nil {
		entity.Fail(w, h.Log, err, "order update failed", zap.String("order_id", id))
		return
	}
	respond.Status(w, http.StatusOK)
}

// HandleDelete deletes an order together with the datasets it owns.
//
// Route: DELETE /order/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete order")
	defer cancel()

	order, err := h.records.Get(ctx, models.KindOrder, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load order failed", zap.String("order_id", id))
		return
	}
	if !entity.CanEdit(u, order, "editors") {
		respond.Status(w, http.StatusForbidden)
		return
	}

	if err := h.Changes.Delete(ctx, u.ID, models.KindOrder, id, "Order deleted"); err != nil {
		entity.Fail(w, h.Log, err, "order deletion failed", zap.String("order_id", id))
		return
	}
	respond.Status(w, http.StatusOK)
}

// HandleAddDataset creates a dataset owned by the order.
// An unknown order is a bad request here, not a missing resource.
//
// Route: POST /order/{id}/dataset
func (h *Handler) HandleAddDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		h.Log.Debug("incorrect order id", zap.String("order_id", id))
		respond.Status(w, http.StatusBadRequest)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	order, err := h.records.Get(ctx, models.KindOrder, id)
	if err != nil {
		if entity.IsNotFound(err) {
			h.Log.Debug("order not in db", zap.String("order_id", id))
			respond.Status(w, http.StatusBadRequest)
			return
		}
		entity.Fail(w, h.Log, err, "load order failed", zap.String("order_id", id))
		return
	}
	if !entity.CanEdit(u, order, "editors") {
		respond.Status(w, http.StatusForbidden)
		return
	}

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindDataset, models.NewDataset())
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	dataset := models.NewDataset()
	dataset.Merge(indata)

	err = h.Changes.AddOwned(ctx, u.ID,
		models.KindDataset, dataset, fmt.Sprintf("Dataset added for order %s", id),
		models.KindOrder, id, "datasets", fmt.Sprintf("Dataset %s added for order", dataset.ID()))
	if err != nil {
		entity.Fail(w, h.Log, err, "dataset insert failed",
			zap.String("order_id", id),
			zap.String("dataset_id", dataset.ID()))
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"_id": dataset.ID()})
}
