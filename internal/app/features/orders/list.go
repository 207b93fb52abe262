// internal/app/features/orders/list.go
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
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ServeList lists the orders visible to the caller: all of them with
// DATA_MANAGEMENT, otherwise those the caller edits.
//
// Route: GET /order
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var filter bson.M
	if !u.Has(permissions.DataManagement) {
		filter = bson.M{"editors": u.ID}
	}
	list, err := h.records.List(ctx, models.KindOrder, filter, entity.ListProjection)
	if err != nil {
		entity.Fail(w, h.Log, err, "list orders failed")
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"orders": list})
}

// ServeListByUser lists {_id, title} of the orders a user edits. Without
// an id the caller's own orders are listed; other users need OWNERS_READ.
//
// Route: GET /order/user
// Route: GET /order/user/{id}
func (h *Handler) ServeListByUser(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID := u.ID
	if id := chi.URLParam(r, "id"); id != "" {
		if !u.Has(permissions.OwnersRead) {
			respond.Status(w, http.StatusForbidden)
			return
		}
		if !models.IsID(id) {
			respond.Status(w, http.StatusNotFound)
			return
		}
		ok, err := h.records.Exists(ctx, models.KindUser, id)
		if err != nil {
			entity.Fail(w, h.Log, err, "user lookup failed", zap.String("user_id", id))
			return
		}
		if !ok {
			respond.Status(w, http.StatusNotFound)
			return
		}
		userID = id
	}

	list, err := h.records.List(ctx, models.KindOrder, bson.M{"editors": userID}, entity.TitleProjection)
	if err != nil {
		entity.Fail(w, h.Log, err, "list orders by user failed", zap.String("user_id", userID))
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"orders": list})
}

// ServeStructure returns an empty order document.
//
// Route: GET /order/structure
func (h *Handler) ServeStructure(w http.ResponseWriter, r *http.Request) {
	h.Resp.JSON(w, http.StatusOK, map[string]any{"order": entity.Template(models.KindOrder)})
}
