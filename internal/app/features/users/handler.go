// internal/app/features/users/handler.go
package users

import (
	"net/http"

	logstore "github.com/dalemusser/datatracker/internal/app/store/logs"
	recordstore "github.com/dalemusser/datatracker/internal/app/store/records"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Fields a client may never write, by route.
var (
	prohibitedOnAdd    = []string{"api_key", "api_salt", "auth_ids"}
	prohibitedOnSelf   = []string{"api_key", "api_salt", "auth_ids", "email", "permissions"}
	prohibitedOnManage = []string{"api_key", "api_salt"}
)

// Handler is the feature-level entry point for Users.
type Handler struct {
	DB      *mongo.Database
	Changes *changes.Recorder
	Audit   *auditlog.Logger
	Resp    respond.Normalizer
	Log     *zap.Logger

	records *recordstore.Store
	users   *userstore.Store
	logs    *logstore.Store
}

// NewHandler constructs a new Users handler. audit may be nil.
func NewHandler(db *mongo.Database, rec *changes.Recorder, audit *auditlog.Logger, resp respond.Normalizer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Changes: rec,
		Audit:   audit,
		Resp:    resp,
		Log:     logger,
		records: rec.Records(),
		users:   userstore.New(db),
		logs:    logstore.New(db),
	}
}

// target resolves the user a /me or /{id} route addresses. Other users
// are reachable only with USER_MANAGEMENT. On false the response has been
// written.
func target(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, _ := auth.CurrentUser(r)
	id := chi.URLParam(r, "id")
	if id == "" || id == u.ID {
		return u.ID, true
	}
	if !u.Has(permissions.UserManagement) {
		respond.Status(w, http.StatusForbidden)
		return "", false
	}
	if !models.IsID(id) {
		respond.Status(w, http.StatusNotFound)
		return "", false
	}
	return id, true
}
