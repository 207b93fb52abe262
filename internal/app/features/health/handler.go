// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"

	dbstatusstore "github.com/dalemusser/datatracker/internal/app/store/dbstatus"
	"github.com/dalemusser/datatracker/internal/app/system/dbinit"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger

	status *dbstatusstore.Store
}

// NewHandler constructs a health Handler over the tracker database.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		status: dbstatusstore.New(db),
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Schema   *int   `json:"schema_version,omitempty"`
	Expected int    `json:"expected_schema_version"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "schema_version":1, "expected_schema_version":1 }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
//
// A schema version other than the expected one reports "degraded" with 200.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Expected: dbinit.Version,
	}

	if err := h.DB.Client().Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	v, ok, err := h.status.Version(ctx)
	switch {
	case err != nil:
		h.Log.Warn("health-check: schema version read failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Message = "Schema version unreadable"
	case !ok:
		resp.Status = "degraded"
		resp.Message = "Database not initialized"
	default:
		resp.Schema = &v
		if v != dbinit.Version {
			resp.Status = "degraded"
			resp.Message = "Schema version mismatch"
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
