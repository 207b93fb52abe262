// internal/app/features/orders/handler.go
package orders

import (
	logstore "github.com/dalemusser/datatracker/internal/app/store/logs"
	recordstore "github.com/dalemusser/datatracker/internal/app/store/records"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// user reference fields of an order
var (
	userListFields   = []string{"editors", "authors", "generators"}
	userSingleFields = []string{"organisation"}
)

// Handler is the feature-level entry point for Orders.
//
// Orders are private: DATA_EDIT is required for every route, and an order
// is visible only to its editors and to DATA_MANAGEMENT.
type Handler struct {
	DB      *mongo.Database
	Changes *changes.Recorder
	Resp    respond.Normalizer
	Log     *zap.Logger

	records *recordstore.Store
	users   *userstore.Store
	logs    *logstore.Store
}

// NewHandler constructs a new Orders handler.
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
