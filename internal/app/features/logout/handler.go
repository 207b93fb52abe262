// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Audit      *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Audit:      audit,
	}
}

// ServeLogout handles GET /logout. The session cookie is cleared whether or
// not anyone was signed in; the response is always 200 with no body.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok && !u.ViaAPIKey {
		h.Audit.Logout(r.Context(), r, u.ID)
	}
	if err := h.SessionMgr.Logout(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	respond.Status(w, http.StatusOK)
}
