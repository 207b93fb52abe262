// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/datatracker/internal/app/store/audit"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Store *audit.Store
	Resp  respond.Normalizer
	Log   *zap.Logger
}

// NewHandler constructs the audit trail handler.
func NewHandler(store *audit.Store, resp respond.Normalizer, logger *zap.Logger) *Handler {
	return &Handler{
		Store: store,
		Resp:  resp,
		Log:   logger,
	}
}
