// internal/app/features/datasets/handler.go
package datasets

import (
	"context"

	logstore "github.com/dalemusser/datatracker/internal/app/store/logs"
	recordstore "github.com/dalemusser/datatracker/internal/app/store/records"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Datasets.
//
// Datasets are public to read. A dataset belongs to the order that created
// it; that order's editors and DATA_MANAGEMENT may change or delete it.
type Handler struct {
	DB      *mongo.Database
	Changes *changes.Recorder
	Resp    respond.Normalizer
	Log     *zap.Logger

	records *recordstore.Store
	logs    *logstore.Store
}

// NewHandler constructs a new Datasets handler.
func NewHandler(db *mongo.Database, rec *changes.Recorder, resp respond.Normalizer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Changes: rec,
		Resp:    resp,
		Log:     logger,
		records: rec.Records(),
		logs:    logstore.New(db),
	}
}

// owningOrder returns the order listing the dataset, or nil when none does.
func (h *Handler) owningOrder(ctx context.Context, datasetID string) (models.Record, error) {
	list, err := h.records.List(ctx, models.KindOrder, bson.M{"datasets": datasetID}, bson.M{"_id": 1, "title": 1, "editors": 1})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// canEdit reports whether u may change the dataset owned by order.
func canEdit(u *auth.SessionUser, order models.Record) bool {
	if u.Has(permissions.DataManagement) {
		return true
	}
	return u != nil && order != nil && models.Contains(order["editors"], u.ID)
}
