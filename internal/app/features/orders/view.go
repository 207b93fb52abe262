// internal/app/features/orders/view.go
package orders

import (
	"context"
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/features/shared/entity"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.uber.org/zap"
)

// ServeOrder returns one order with its user references expanded to
// {_id, name, email} and its datasets to {_id, title}.
//
// Route: GET /order/{id}
func (h *Handler) ServeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
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

	if err := h.expand(ctx, order); err != nil {
		entity.Fail(w, h.Log, err, "expand order failed", zap.String("order_id", id))
		return
	}
	h.Resp.Resource(w, r, http.StatusOK, map[string]any{"order": order})
}

// expand rewrites the references of order in place for output.
func (h *Handler) expand(ctx context.Context, order models.Record) error {
	for _, field := range userListFields {
		list, err := entity.Users(ctx, h.users, order.Strings(field))
		if err != nil {
			return err
		}
		order[field] = list
	}

	orgID := order.String("organisation")
	org, found, err := entity.User(ctx, h.users, orgID)
	if err != nil {
		return err
	}
	if !found {
		h.Log.Error("reference to non-existing organisation",
			zap.String("order_id", order.ID()),
			zap.String("organisation", orgID))
	}
	order["organisation"] = org

	datasets, err := entity.Datasets(ctx, h.records, order.Strings("datasets"))
	if err != nil {
		return err
	}
	order["datasets"] = datasets
	return nil
}

// ServeLog returns the change history of an order.
//
// Route: GET /order/{id}/log
func (h *Handler) ServeLog(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !u.Has(permissions.DataManagement) {
		order, err := h.records.Get(ctx, models.KindOrder, id)
		if err != nil && !entity.IsNotFound(err) {
			entity.Fail(w, h.Log, err, "load order failed", zap.String("order_id", id))
			return
		}
		// deleted orders keep their history; only managers may read it
		if order == nil || !models.Contains(order["editors"], u.ID) {
			respond.Status(w, http.StatusForbidden)
			return
		}
	}

	doc, err := entity.LogDocument(ctx, h.logs, models.KindOrder, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load order log failed", zap.String("order_id", id))
		return
	}
	h.Resp.JSON(w, http.StatusOK, doc)
}
