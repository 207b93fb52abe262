// internal/app/features/users/view.go
package users

import (
	"context"
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/features/shared/entity"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// meFields are the account fields returned by /user/me.
var meFields = []string{"affiliation", "auth_ids", "email", "contact", "name", "orcid", "permissions", "url"}

// ServeList lists users. Login identities and permissions are included
// only for USER_MANAGEMENT.
//
// Route: GET /user
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	projection := bson.M{"api_key": 0, "api_salt": 0}
	if !u.Has(permissions.UserManagement) {
		projection["auth_ids"] = 0
		projection["permissions"] = 0
	}
	list, err := h.records.List(ctx, models.KindUser, nil, projection)
	if err != nil {
		entity.Fail(w, h.Log, err, "list users failed")
		return
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"users": list})
}

// ServePermissions lists every permission name.
//
// Route: GET /user/permissions
func (h *Handler) ServePermissions(w http.ResponseWriter, r *http.Request) {
	h.Resp.JSON(w, http.StatusOK, map[string]any{"permissions": permissions.All()})
}

// ServeStructure returns an empty user document.
//
// Route: GET /user/structure
func (h *Handler) ServeStructure(w http.ResponseWriter, r *http.Request) {
	h.Resp.JSON(w, http.StatusOK, map[string]any{"user": entity.Template(models.KindUser)})
}

// ServeMe returns the caller's account fields. Anonymous callers get the
// same fields, empty.
//
// Route: GET /user/me
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	out := models.Record{}
	for _, f := range meFields {
		out[f] = ""
	}
	out["auth_ids"] = []any{}
	out["permissions"] = []any{}

	if cur, ok := auth.CurrentUser(r); ok {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		u, err := h.users.GetByID(ctx, cur.ID)
		if err != nil {
			entity.Fail(w, h.Log, err, "load current user failed", zap.String("user_id", cur.ID))
			return
		}
		rec := u.Record()
		for _, f := range meFields {
			out[f] = rec[f]
		}
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"user": out})
}

// ServeUser returns one user without key material.
//
// Route: GET /user/{id}
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rec, err := h.records.GetProjected(ctx, models.KindUser, id, bson.M{"api_key": 0, "api_salt": 0})
	if err != nil {
		entity.Fail(w, h.Log, err, "load user failed", zap.String("user_id", id))
		return
	}
	h.Resp.Resource(w, r, http.StatusOK, map[string]any{"user": rec})
}

// ServeLog returns the change history of a user's own record.
//
// Route: GET /user/me/log
// Route: GET /user/{id}/log
func (h *Handler) ServeLog(w http.ResponseWriter, r *http.Request) {
	id, ok := target(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	exists, err := h.records.Exists(ctx, models.KindUser, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load user failed", zap.String("user_id", id))
		return
	}
	if !exists {
		respond.Status(w, http.StatusNotFound)
		return
	}

	doc, err := entity.LogDocument(ctx, h.logs, models.KindUser, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load user log failed", zap.String("user_id", id))
		return
	}
	h.Resp.JSON(w, http.StatusOK, doc)
}

// ServeActions lists the changes a user made, newest first. Entries name
// the changed entity in entry_id and carry no data.
//
// Route: GET /user/me/actions
// Route: GET /user/{id}/actions
func (h *Handler) ServeActions(w http.ResponseWriter, r *http.Request) {
	id, ok := target(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.logs.ByUser(ctx, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load user actions failed", zap.String("user_id", id))
		return
	}
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{
			"_id":       e.ID,
			"action":    e.Action,
			"comment":   e.Comment,
			"data_type": string(e.DataType),
			"entry_id":  e.Data.ID(),
			"timestamp": e.Timestamp,
		}
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{"logs": out})
}
