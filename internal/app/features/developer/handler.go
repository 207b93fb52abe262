// internal/app/features/developer/handler.go
//
// Package developer holds routes that aid development and testing. They
// are mounted only when dev_mode.api is set and must never be enabled in
// production: /login/{authID} signs in as any user without credentials.
package developer

import (
	"context"
	"net/http"

	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	SessionMgr *auth.SessionManager
	Audit      *auditlog.Logger
	Resp       respond.Normalizer
	Log        *zap.Logger

	users *userstore.Store
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, audit *auditlog.Logger, resp respond.Normalizer, logger *zap.Logger) *Handler {
	return &Handler{
		SessionMgr: sessionMgr,
		Audit:      audit,
		Resp:       resp,
		Log:        logger,
		users:      userstore.New(db),
	}
}

// ServeLogin signs in as the user holding authID. Unknown identities
// answer 401.
//
// Route: GET /developer/login/{authID}
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	authID := chi.URLParam(r, "authID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.GetByAuthID(ctx, authID)
	if err != nil {
		h.Log.Debug("developer login rejected", zap.String("auth_id", authID), zap.Error(err))
		respond.Status(w, http.StatusUnauthorized)
		return
	}
	if err := h.SessionMgr.Login(w, r, u.ID); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID))
		respond.Status(w, http.StatusInternalServerError)
		return
	}
	h.Audit.DeveloperLoginUsed(ctx, r, u.ID, authID)
	h.Log.Warn("developer login used", zap.String("user_id", u.ID), zap.String("auth_id", authID))
	respond.Status(w, http.StatusOK)
}

// ServeHello answers {"test": "success"}. It is mounted behind different
// access checks to probe the authentication layer.
func (h *Handler) ServeHello(w http.ResponseWriter, r *http.Request) {
	h.Resp.JSON(w, http.StatusOK, map[string]string{"test": "success"})
}
