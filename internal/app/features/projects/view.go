// internal/app/features/projects/view.go
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

// ServeList lists all projects.
//
// Route: GET /project
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.records.List(ctx, models.KindProject, nil, entity.ListProjection)
	if err != nil {
		entity.Fail(w, h.Log, err, "list projects failed")
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"projects": list})
}

// ServeStructure returns an empty project document.
//
// Route: GET /project/structure
func (h *Handler) ServeStructure(w http.ResponseWriter, r *http.Request) {
	h.Resp.JSON(w, http.StatusOK, map[string]any{"project": entity.Template(models.KindProject)})
}

// ServeProject returns one project with its datasets as
// {_id, title}. Owners are expanded for owners and DATA_MANAGEMENT and
// left out for everyone else.
//
// Route: GET /project/{id}
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	proj, err := h.records.Get(ctx, models.KindProject, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load project failed", zap.String("project_id", id))
		return
	}

	if entity.CanEdit(u, proj, ownerField) {
		owners, err := entity.Users(ctx, h.users, proj.Strings(ownerField))
		if err != nil {
			entity.Fail(w, h.Log, err, "expand owners failed", zap.String("project_id", id))
			return
		}
		proj[ownerField] = owners
	} else {
		delete(proj, ownerField)
	}

	datasets, err := entity.Datasets(ctx, h.records, proj.Strings("datasets"))
	if err != nil {
		entity.Fail(w, h.Log, err, "expand datasets failed", zap.String("project_id", id))
		return
	}
	proj["datasets"] = datasets

	h.Resp.Resource(w, r, http.StatusOK, map[string]any{"project": proj})
}

// ServeLog returns the change history of a project.
//
// Route: GET /project/{id}/log
func (h *Handler) ServeLog(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	proj, err := h.records.Get(ctx, models.KindProject, id)
	if err != nil && !entity.IsNotFound(err) {
		entity.Fail(w, h.Log, err, "load project failed", zap.String("project_id", id))
		return
	}
	if !entity.CanEdit(u, proj, ownerField) {
		respond.Status(w, http.StatusForbidden)
		return
	}

	doc, err := entity.LogDocument(ctx, h.logs, models.KindProject, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load project log failed", zap.String("project_id", id))
		return
	}
	h.Resp.JSON(w, http.StatusOK, doc)
}
