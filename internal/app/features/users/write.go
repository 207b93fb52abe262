// internal/app/features/users/write.go
package users

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/dalemusser/datatracker/internal/app/features/shared/entity"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/normalize"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.uber.org/zap"
)

// HandleAdd registers a user. An email is required and must be unused.
// Only USER_MANAGEMENT may grant permissions.
//
// Route: POST /user
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindUser, models.NewUserRecord(), prohibitedOnAdd...)
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	email, _ := indata["email"].(string)
	email = normalize.Email(email)
	if email == "" {
		respond.Status(w, http.StatusBadRequest)
		return
	}
	if len(models.StringList(indata["permissions"])) > 0 && !u.Has(permissions.UserManagement) {
		respond.Status(w, http.StatusForbidden)
		return
	}
	taken, err := h.users.EmailExistsForOther(ctx, email, "")
	if err != nil {
		entity.Fail(w, h.Log, err, "email lookup failed")
		return
	}
	if taken {
		h.Log.Debug("user add rejected, email in use", zap.String("email", email))
		respond.Status(w, http.StatusBadRequest)
		return
	}

	user := models.NewUserRecord()
	user.Merge(indata)
	user["email"] = email
	user["auth_ids"] = []any{user.ID() + "::local"}

	if err := h.Changes.Commit(ctx, u.ID, models.KindUser, models.ActionAdd, "User added by admin", user); err != nil {
		entity.Fail(w, h.Log, err, "user insert failed", zap.String("user_id", user.ID()))
		return
	}
	h.Audit.UserCreated(ctx, r, u.ID, user.ID())
	h.Resp.JSON(w, http.StatusOK, map[string]any{"_id": user.ID()})
}

// HandleUpdateMe changes the caller's own profile. Email, permissions and
// login identities cannot be changed this way.
//
// Route: PATCH /user/me
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	h.update(w, r, u.ID, prohibitedOnSelf, "User self-updated")
}

// HandleUpdate changes any field of a user except the API key.
//
// Route: PATCH /user/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	h.update(w, r, id, prohibitedOnManage, "User updated")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, id string, prohibited []string, comment string) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	user, err := h.records.Get(ctx, models.KindUser, id)
	if err != nil {
		entity.Fail(w, h.Log, err, "load user failed", zap.String("user_id", id))
		return
	}

	indata, status := entity.Input(ctx, r, h.Log, h.records, models.KindUser, user, prohibited...)
	if status != http.StatusOK {
		respond.Status(w, status)
		return
	}
	if email, ok := indata["email"].(string); ok {
		email = normalize.Email(email)
		taken, err := h.users.EmailExistsForOther(ctx, email, id)
		if err != nil {
			entity.Fail(w, h.Log, err, "email lookup failed", zap.String("user_id", id))
			return
		}
		if taken {
			h.Log.Debug("user update rejected, email in use", zap.String("user_id", id))
			respond.Status(w, http.StatusBadRequest)
			return
		}
		indata["email"] = email
	}

	changed := changedFields(indata, user)
	if len(changed) == 0 {
		respond.Status(w, http.StatusOK)
		return
	}
	user.Merge(indata)

	if err := h.Changes.Commit(ctx, u.ID, models.KindUser, models.ActionEdit, comment, user); err != nil {
		entity.Fail(w, h.Log, err, "user update failed", zap.String("user_id", id))
		return
	}
	h.Audit.UserUpdated(ctx, r, u.ID, id, strings.Join(changed, ","))
	respond.Status(w, http.StatusOK)
}

// HandleDelete deletes a user and removes every reference to them.
//
// Route: DELETE /user/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := entity.ID(r)
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	u, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete user")
	defer cancel()

	if err := h.Changes.Delete(ctx, u.ID, models.KindUser, id, "User deleted"); err != nil {
		entity.Fail(w, h.Log, err, "user deletion failed", zap.String("user_id", id))
		return
	}
	h.Audit.UserDeleted(ctx, r, u.ID, id)
	respond.Status(w, http.StatusOK)
}

// changedFields lists the keys of indata whose value differs from rec,
// sorted.
func changedFields(indata map[string]any, rec models.Record) []string {
	var out []string
	for k, v := range indata {
		if entity.Differs(map[string]any{k: v}, rec) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
