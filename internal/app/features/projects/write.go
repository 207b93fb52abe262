// internal/app/features/projects/write.go
package projects

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

var userListFields = []string{ownerField}

// HandleAdd creates a project. Without owners the creator becomes the
// only owner.
//
// Route: POST /project
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindProject, models.NewProject())
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	proj := models.NewProject()
	err := h.Changes.Atomic(ctx, func(ctx context.Context) error {
		if err := h.Changes.ResolveUserFields(ctx, u.ID, indata, userListFields, nil); err != nil {
			return err
		}
		proj.Merge(indata)
		if len(proj.Strings(ownerField)) == 0 {
			proj[ownerField] = []any{u.ID}
		}
		return h.Changes.Commit(ctx, u.ID, models.KindProject, models.ActionAdd, "Project added", proj)
	})
	if err != nil {
		entity.Fail(w, h.Log, err, "project insert failed", zap.String("project_id", proj.ID()))
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"_id": proj.ID()})
}

// HandleUpdate changes fields of a project; unchanged values are not
// logged.
//
// Route: PATCH /project/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	proj, err := h.records.Get(ctx, models.KindProject, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load project failed", zap.String("project_id", id))
		return
	}
	if !entity.CanEdit(u, proj, ownerField) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindProject, proj)
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	// unchanged values are neither written nor logged
	err = h.Changes.Atomic(ctx, func(ctx context.Context) error {
		if err := h.Changes.ResolveUserFields(ctx, u.ID, indata, userListFields, nil); err != nil {
			return err
		}
		if !entity.Differs(indata, proj) {
			return nil
		}
		proj.Merge(indata)
		if len(proj.Strings(ownerField)) == 0 {
			proj[ownerField] = []any{u.ID}
		}
		return h.Changes.Commit(ctx, u.ID, models.KindProject, models.ActionEdit, "Project updated", proj)
	})
	if err != nil {
		entity.Fail(w, h.Log, err, "project update failed", zap.String("project_id", id))
		return
	}
	respond.Status(w, http.StatusOK)
}

// HandleDelete deletes a project. Datasets are not touched.
//
// Route: DELETE /project/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	proj, err := h.records.Get(ctx, models.KindProject, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load project failed", zap.String("project_id", id))
		return
	}
	if !entity.CanEdit(u, proj, ownerField) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	if err := h.Changes.Delete(ctx, u.ID, models.KindProject, id, "Project deleted"); err != nil {
		entity.Fail(w, h.Log, err, "project deletion failed", zap.String("project_id", id))
		return
	}
	respond.Status(w, http.StatusOK)
}
