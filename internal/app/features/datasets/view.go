// internal/app/features/datasets/view.go
package datasets

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/datatracker/internal/app/features/shared/entity"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxRandom caps /random/{n}.
const maxRandom = 100

// ServeList lists all datasets.
//
// Route: GET /dataset
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.records.List(ctx, models.KindDataset, nil, entity.ListProjection)
	if err != nil {
		entity.Fail(w, h.Log, err, "list datasets failed")
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"datasets": list})
}

// ServeRandom returns n randomly chosen datasets (default 1).
//
// Route: GET /dataset/random
// Route: GET /dataset/random/{n}
func (h *Handler) ServeRandom(w http.ResponseWriter, r *http.Request) {
	n := 1
	if s := chi.URLParam(r, "n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			respond.Status(w, http.StatusNotFound)
			return
		}
		n = min(v, maxRandom)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.records.Sample(ctx, models.KindDataset, n)
	if err != nil {
		entity.Fail(w, h.Log, err, "sample datasets failed", zap.Int("n", n))
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"datasets": list})
}

// ServeStructure returns an empty dataset document.
//
// Route: GET /dataset/structure
func (h *Handler) ServeStructure(w http.ResponseWriter, r *http.Request) {
	h.Resp.JSON(w, http.StatusOK, map[string]any{"dataset": entity.Template(models.KindDataset)})
}

// ServeDataset returns one dataset with the projects and collections that
// include it. The owning order is added, as {_id, title}, for callers who
// may edit the dataset.
//
// Route: GET /dataset/{id}
func (h *Handler) ServeDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ds, err := h.records.Get(ctx, models.KindDataset, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load dataset failed", zap.String("dataset_id", id))
		return
	}

	for _, related := range []struct {
		key  string
		kind models.Kind
	}{
		{"projects", models.KindProject},
		{"collections", models.KindCollection},
	} {
		list, err := entity.Referrers(ctx, h.records, related.kind, "datasets", id)
		if err != nil {
			entity.Fail(w, h.Log, err, "load dataset referrers failed",
				zap.String("dataset_id", id),
				zap.String("kind", string(related.kind)))
			return
		}
		ds[related.key] = list
	}

	order, err := h.owningOrder(ctx, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load owning order failed", zap.String("dataset_id", id))
		return
	}
	if order != nil && canEdit(u, order) {
		ds["order"] = models.Record{"_id": order.ID(), "title": order.String("title")}
	}

	h.Resp.Resource(w, r, http.StatusOK, map[string]any{"dataset": ds})
}

// ServeLog returns the change history of a dataset.
//
// Route: GET /dataset/{id}/log
func (h *Handler) ServeLog(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	order, err := h.owningOrder(ctx, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load owning order failed", zap.String("dataset_id", id))
		return
	}
	if !canEdit(u, order) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	doc, err := entity.LogDocument(ctx, h.logs, models.KindDataset, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load dataset log failed", zap.String("dataset_id", id))
		return
	}
	h.Resp.JSON(w, http.StatusOK, doc)
}
