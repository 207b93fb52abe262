// internal/app/features/collections/handler.go
package collections

import (
	logstore "github.com/dalemusser/datatracker/internal/app/store/logs"
	recordstore "github.com/dalemusser/datatracker/internal/app/store/records"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// editorField lists the users allowed to change a collection.
const editorField = "editors"

// Handler is the feature-level entry point for Collections.
//
// Collections group datasets and are public to read; the editor list is
// shown only to editors and DATA_MANAGEMENT.
type Handler struct {
	DB      *mongo.Database
	Changes *changes.Recorder
	Resp    respond.Normalizer
	Log     *zap.Logger

	records *recordstore.Store
	users   *userstore.Store
	logs    *logstore.Store
}

// NewHandler constructs a new Collections handler.
func NewHandler(db *mongo.Database, rec *changes.Recorder, resp respond.Normalizer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Changes: rec,
		Resp:    resp,
		Log:     logger,
		records: rec.Records(),
		users:   userstore.New(db),
		logs:    logstore.New(db),
	}
}
