// internal/app/features/users/apikey.go
package users

import (
	"context"
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/features/shared/entity"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/app/system/txn"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.uber.org/zap"
)

// HandleAPIKey issues a new API key, replacing any previous one. The key
// is returned once; only its hash is stored.
//
// Route: POST /user/me/apikey
// Route: POST /user/{id}/apikey
func (h *Handler) HandleAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := target(w, r)
	if !ok {
		return
	}
	u, _ := auth.CurrentUser(r)

	key, salt, err := auth.GenerateAPIKey()
	if err != nil {
		entity.Fail(w, h.Log, err, "generate api key failed")
		return
	}
	hash, err := auth.HashAPIKey(key, salt)
	if err != nil {
		entity.Fail(w, h.Log, err, "hash api key failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.users.SetAPIKey(ctx, id, hash, salt); err != nil {
			return err
		}
		user, err := h.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return h.Changes.Log(ctx, u.ID, models.KindUser, models.ActionEdit, "New API key", user.Record())
	})
	if err != nil {
		entity.Fail(w, h.Log, err, "api key update failed", zap.String("user_id", id))
		return
	}
	h.Audit.APIKeyIssued(ctx, r, u.ID, id)
	h.Resp.JSON(w, http.StatusOK, map[string]any{"key": key})
}
