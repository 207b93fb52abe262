// internal/app/features/login/apikey.go
package login

import (
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/system/jsonbody"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"go.uber.org/zap"
)

// HandleAPIKeyLogin exchanges an API key for a session cookie. The body is
// {"api-user": <id or email>, "api-key": <key>}. Success and failure both
// answer with an empty body.
//
// Route: POST /login/apikey
func (h *Handler) HandleAPIKeyLogin(w http.ResponseWriter, r *http.Request) {
	body, err := jsonbody.Decode(r, "")
	if err != nil {
		respond.Status(w, http.StatusBadRequest)
		return
	}
	ref, _ := body["api-user"].(string)
	key, _ := body["api-key"].(string)
	if ref == "" || key == "" {
		respond.Status(w, http.StatusUnauthorized)
		return
	}

	u, status := h.SessionMgr.AuthenticateAPIKey(r, ref, key)
	if u == nil {
		h.Audit.LoginFailed(r.Context(), r, "apikey", "invalid key")
		respond.Status(w, status)
		return
	}
	if err := h.SessionMgr.Login(w, r, u.ID); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID))
		respond.Status(w, http.StatusInternalServerError)
		return
	}
	h.Audit.LoginSuccess(r.Context(), r, u.ID, "apikey")
	h.Log.Info("user logged in via api key", zap.String("user_id", u.ID))
	respond.Status(w, http.StatusOK)
}
