// internal/app/features/shared/entity/entity.go
//
// Package entity holds the request plumbing shared by the entity features:
// identifier parsing, body validation, reference expansion and log output.
package entity

import (
	"context"
	"errors"
	"net/http"
	"reflect"

	logstore "github.com/dalemusser/datatracker/internal/app/store/logs"
	recordstore "github.com/dalemusser/datatracker/internal/app/store/records"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/htmlsanitize"
	"github.com/dalemusser/datatracker/internal/app/system/jsonbody"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/validate"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// TitleProjection limits a reference expansion to {_id, title}.
var TitleProjection = bson.M{"_id": 1, "title": 1}

// ListProjection is the projection of entity list endpoints.
var ListProjection = bson.M{"_id": 1, "title": 1, "tags": 1, "properties": 1}

// ID returns the {id} URL parameter and whether it is a well-formed
// identifier. Malformed identifiers are answered 404 by the callers.
func ID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	return id, models.IsID(id)
}

// Input decodes the request body for kind and validates it against
// template, with prohibited keys rejected. Rich-text fields are sanitized.
// On failure the returned status is what the handler answers.
func Input(ctx context.Context, r *http.Request, logger *zap.Logger, lookup validate.Lookup, kind models.Kind, template models.Record, prohibited ...string) (map[string]any, int) {
	indata, err := jsonbody.Decode(r, string(kind))
	if err != nil {
		logger.Debug("bad request body", zap.String("data_type", string(kind)), zap.Error(err))
		return nil, http.StatusBadRequest
	}
	if err := validate.Basic(ctx, lookup, indata, template, prohibited); err != nil {
		if errors.Is(err, validate.ErrLookupFailed) {
			logger.Error("validation lookup failed", zap.String("data_type", string(kind)), zap.Error(err))
			return nil, http.StatusInternalServerError
		}
		logger.Debug("indata rejected",
			zap.String("data_type", string(kind)),
			zap.Strings("reasons", validate.Reasons(err)))
		return nil, http.StatusBadRequest
	}
	htmlsanitize.Fields(indata, htmlsanitize.RichTextFields...)
	return indata, http.StatusOK
}

// Differs reports whether any key of indata holds a value other than the
// one stored in rec.
func Differs(indata map[string]any, rec models.Record) bool {
	for k, v := range indata {
		if !reflect.DeepEqual(models.Plain(v), models.Plain(rec[k])) {
			return true
		}
	}
	return false
}

// CanEdit reports whether u may change rec: DATA_MANAGEMENT, or u is listed
// in rec's editor field.
func CanEdit(u *auth.SessionUser, rec models.Record, editorField string) bool {
	if u == nil {
		return false
	}
	return u.Has(permissions.DataManagement) || models.Contains(rec[editorField], u.ID)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, recordstore.ErrNotFound) || errors.Is(err, userstore.ErrNotFound)
}

// Fail answers a store error: 404 for a missing record, 500 (logged) for
// anything else.
func Fail(w http.ResponseWriter, logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if IsNotFound(err) {
		respond.Status(w, http.StatusNotFound)
		return
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
	respond.Status(w, http.StatusInternalServerError)
}

// Users expands user ids to {_id, name, email}, keeping their order.
// Unknown ids are dropped.
func Users(ctx context.Context, users *userstore.Store, ids []string) ([]any, error) {
	found, err := users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if s, ok := found[id]; ok {
			out = append(out, s.Record())
		}
	}
	return out, nil
}

// User expands a single user reference. ok is false when id is set but
// names no user; an empty id expands to an empty mapping.
func User(ctx context.Context, users *userstore.Store, id string) (out models.Record, ok bool, err error) {
	if id == "" {
		return models.Record{}, true, nil
	}
	list, err := Users(ctx, users, []string{id})
	if err != nil {
		return nil, false, err
	}
	if len(list) == 0 {
		return models.Record{}, false, nil
	}
	return list[0].(models.Record), true, nil
}

// Datasets expands dataset ids to {_id, title}.
func Datasets(ctx context.Context, records *recordstore.Store, ids []string) ([]models.Record, error) {
	if len(ids) == 0 {
		return []models.Record{}, nil
	}
	return records.List(ctx, models.KindDataset, bson.M{"_id": bson.M{"$in": ids}}, TitleProjection)
}

// Referrers lists {_id, title} of the kind records whose field holds id.
func Referrers(ctx context.Context, records *recordstore.Store, kind models.Kind, field, id string) ([]models.Record, error) {
	return records.List(ctx, kind, bson.M{field: id}, TitleProjection)
}

// LogDocument returns the change history of one entity as served by the
// /log endpoints: entries oldest first, each after the first trimmed to
// the fields it changed.
func LogDocument(ctx context.Context, logs *logstore.Store, kind models.Kind, id string) (map[string]any, error) {
	entries, err := logs.ForEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	entries = logstore.Incremental(entries)
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{
			"_id":       e.ID,
			"action":    e.Action,
			"comment":   e.Comment,
			"data":      e.Data,
			"timestamp": e.Timestamp,
			"user":      e.User,
		}
	}
	return map[string]any{"entry_id": id, "data_type": string(kind), "logs": out}, nil
}

// Template returns the empty document of kind as served by the /structure
// endpoints, with an empty identifier.
func Template(kind models.Kind) models.Record {
	t := models.Structure(kind)
	t["_id"] = ""
	return t
}
